package img

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/tendant/nailbiter/internal/processors"
	"github.com/tendant/nailbiter/pkg/schema"
)

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		declared string
		want     imaging.Format
	}{
		{"", imaging.JPEG},
		{"JPG", imaging.JPEG},
		{"jpg", imaging.JPEG},
		{"jpeg", imaging.JPEG},
		{"png", imaging.PNG},
		{"gif", imaging.GIF},
		{"tiff", imaging.TIFF},
		{"bmp", imaging.BMP},
		{"webp", imaging.JPEG},
		{"unknown", imaging.JPEG},
	}
	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			if got := OutputFormat(tt.declared); got != tt.want {
				t.Fatalf("OutputFormat(%q) = %s, want %s", tt.declared, got, tt.want)
			}
		})
	}
}

func TestEncodeFlattensAlphaForJPEG(t *testing.T) {
	im := image.NewNRGBA(image.Rect(0, 0, 8, 8))

	data, err := Encode(im, imaging.JPEG, nil)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	decoded, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	r, g, b, _ := decoded.At(4, 4).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Fatalf("transparent pixel not flattened onto white: %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestEncodeQuality(t *testing.T) {
	im := imaging.New(64, 64, color.NRGBA{R: 10, G: 200, B: 90, A: 255})

	if _, err := Encode(im, imaging.JPEG, processors.Options{"quality=40"}); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	for _, opt := range []string{"quality=0", "quality=101", "quality=best"} {
		if _, err := Encode(im, imaging.JPEG, processors.Options{opt}); !errors.Is(err, processors.ErrInvalidOption) {
			t.Errorf("Encode(%s): expected ErrInvalidOption, got %v", opt, err)
		}
	}
	if _, err := Encode(im, imaging.PNG, processors.Options{"quality=best"}); err != nil {
		t.Fatalf("quality must be ignored for PNG, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want schema.FailureType
	}{
		{nil, ""},
		{ErrConfiguration, schema.FailureTypeConfiguration},
		{ErrDecode, schema.FailureTypeDecode},
		{ErrProcessing, schema.FailureTypeProcessing},
		{ErrStorage, schema.FailureTypeStorage},
		{context.Canceled, schema.FailureTypeCanceled},
		{fmt.Errorf("save: %w", context.DeadlineExceeded), schema.FailureTypeCanceled},
		{errors.New("other"), schema.FailureTypeValidation},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
