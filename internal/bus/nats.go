// internal/bus/nats.go
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultHandlerTimeout bounds the context passed to a message handler.
const DefaultHandlerTimeout = 30 * time.Second

// Publisher is the publishing half of Client, used by code that only emits
// events.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// Handler processes one message body. A returned error is logged; messages
// are not redelivered.
type Handler func(ctx context.Context, data []byte) error

type Client struct {
	nc      *nats.Conn
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Client)

func WithHandlerTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func Connect(url, name string, opts ...Option) (*Client, error) {
	c := &Client{timeout: DefaultHandlerTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	c.nc = nc
	return c, nil
}

// Close drains subscriptions and pending publishes before closing.
func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

func (c *Client) Conn() *nats.Conn { return c.nc }

func (c *Client) PublishJSON(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	return c.nc.Publish(subject, b)
}

func (c *Client) SubscribeJSON(subject string, handler Handler) (*nats.Subscription, error) {
	return c.nc.Subscribe(subject, c.msgHandler(subject, handler))
}

// QueueSubscribeJSON delivers each message to one member of queue, so
// several workers can share a subject.
func (c *Client) QueueSubscribeJSON(subject, queue string, handler Handler) (*nats.Subscription, error) {
	if queue == "" {
		return c.SubscribeJSON(subject, handler)
	}
	return c.nc.QueueSubscribe(subject, queue, c.msgHandler(subject, handler))
}

func (c *Client) msgHandler(subject string, handler Handler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := handler(ctx, msg.Data); err != nil {
			c.logger.Error("handle message failed", "subject", subject, "err", err)
		}
	}
}

// Decode unmarshals a JSON message body into a T.
func Decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}
