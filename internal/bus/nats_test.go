package bus

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tendant/nailbiter/pkg/schema"
)

func TestMsgHandlerPassesDeadline(t *testing.T) {
	c := &Client{timeout: time.Minute, logger: slog.Default()}

	var gotData string
	var hasDeadline bool
	h := c.msgHandler("images.uploaded", func(ctx context.Context, data []byte) error {
		_, hasDeadline = ctx.Deadline()
		gotData = string(data)
		return nil
	})
	h(&nats.Msg{Subject: "images.uploaded", Data: []byte(`{"id":"1"}`)})

	if gotData != `{"id":"1"}` {
		t.Fatalf("handler got %q", gotData)
	}
	if !hasDeadline {
		t.Fatal("handler context has no deadline")
	}
}

func TestMsgHandlerLogsErrors(t *testing.T) {
	var buf bytes.Buffer
	c := &Client{timeout: time.Second, logger: slog.New(slog.NewTextHandler(&buf, nil))}

	h := c.msgHandler("images.deleted", func(context.Context, []byte) error {
		return errors.New("boom")
	})
	h(&nats.Msg{Data: []byte("{}")})

	out := buf.String()
	if !strings.Contains(out, "subject=images.deleted") || !strings.Contains(out, "err=boom") {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestDecode(t *testing.T) {
	evt, err := Decode[schema.ImageUploaded]([]byte(`{"id":"abc","field":"avatar","path":"photos/cat.jpg","happened_at":42}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if evt.ID != "abc" || evt.Field != "avatar" || evt.Path != "photos/cat.jpg" || evt.HappenedAt != 42 {
		t.Fatalf("unexpected event: %+v", evt)
	}

	if _, err := Decode[schema.ImageUploaded]([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
