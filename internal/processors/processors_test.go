package processors

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.NRGBA {
	im := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			im.Set(x, y, c)
		}
	}
	return im
}

func TestResolveDefaultOrder(t *testing.T) {
	chain, err := NewDefaultRegistry().Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	got := strings.Join(chain.IDs(), ",")
	if got != "colorspace,autocrop,scale_and_crop,filters" {
		t.Fatalf("unexpected chain order: %s", got)
	}
}

func TestResolveUnknownIdentifier(t *testing.T) {
	chain, err := NewDefaultRegistry().Resolve([]string{Colorspace, "watermark", Filters})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if chain != nil {
		t.Fatalf("expected no partial chain, got %v", chain.IDs())
	}
}

func TestRegisterInvalidatesResolvedChains(t *testing.T) {
	r := NewDefaultRegistry()
	ids := []string{Colorspace, "noop"}

	if _, err := r.Resolve(ids); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before registration, got %v", err)
	}

	noop := func(im image.Image, _ Size, _ Options) (image.Image, error) { return im, nil }
	if err := r.Register("noop", noop); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	chain, err := r.Resolve(ids)
	if err != nil {
		t.Fatalf("Resolve after Register returned error: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(chain))
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewDefaultRegistry()
	if err := r.Register(Filters, FiltersStage); err == nil {
		t.Fatal("expected error for duplicate registration")
	}
	if err := r.Register("", FiltersStage); err == nil {
		t.Fatal("expected error for empty identifier")
	}
}

func TestChainRunsStagesInOrder(t *testing.T) {
	var calls []string
	record := func(name string) Func {
		return func(im image.Image, size Size, opts Options) (image.Image, error) {
			if size != (Size{Width: 10, Height: 20}) {
				t.Errorf("stage %s got size %s", name, size)
			}
			if len(opts) != 2 {
				t.Errorf("stage %s got %d options, want full list", name, len(opts))
			}
			calls = append(calls, name)
			return im, nil
		}
	}

	chain := Chain{{ID: "a", Fn: record("a")}, {ID: "b", Fn: record("b")}, {ID: "c", Fn: record("c")}}
	if _, err := chain.Run(solidImage(4, 4, color.White), Size{Width: 10, Height: 20}, Options{"crop", "sharpen"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if strings.Join(calls, "") != "abc" {
		t.Fatalf("stages ran out of order: %v", calls)
	}
}

func TestChainReportsFailingStage(t *testing.T) {
	boom := errors.New("boom")
	var reached bool
	chain := Chain{
		{ID: "fail", Fn: func(image.Image, Size, Options) (image.Image, error) { return nil, boom }},
		{ID: "after", Fn: func(im image.Image, _ Size, _ Options) (image.Image, error) { reached = true; return im, nil }},
	}

	_, err := chain.Run(solidImage(2, 2, color.White), Size{Width: 1, Height: 1}, nil)
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "fail" {
		t.Fatalf("expected StageError for stage fail, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if reached {
		t.Fatal("stage after failure must not run")
	}
}

func TestChainRecoversPanics(t *testing.T) {
	chain := Chain{{ID: "panics", Fn: func(image.Image, Size, Options) (image.Image, error) { panic("bad stage") }}}
	if _, err := chain.Run(solidImage(2, 2, color.White), Size{Width: 1, Height: 1}, nil); err == nil {
		t.Fatal("expected error from panicking stage")
	}
}

func TestColorspaceDoesNotMutateInput(t *testing.T) {
	src := solidImage(3, 3, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	out, err := ColorspaceStage(src, Size{Width: 1, Height: 1}, Options{"bw"})
	if err != nil {
		t.Fatalf("ColorspaceStage returned error: %v", err)
	}
	if got := src.NRGBAAt(1, 1); got.R != 200 || got.G != 10 {
		t.Fatalf("input was modified: %+v", got)
	}
	c := out.(*image.NRGBA).NRGBAAt(1, 1)
	if c.R != c.G || c.G != c.B {
		t.Fatalf("expected grey pixel, got %+v", c)
	}
}

func TestAutocropRemovesUniformBorder(t *testing.T) {
	im := solidImage(40, 30, color.White)
	for x := 10; x < 30; x++ {
		for y := 5; y < 25; y++ {
			im.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}

	out, err := AutocropStage(im, Size{Width: 10, Height: 10}, Options{"autocrop"})
	if err != nil {
		t.Fatalf("AutocropStage returned error: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
		t.Fatalf("unexpected cropped size: %dx%d, want 20x20", b.Dx(), b.Dy())
	}
}

func TestAutocropNoOp(t *testing.T) {
	tests := []struct {
		name string
		im   image.Image
		opts Options
	}{
		{"option absent", solidImage(10, 10, color.White), nil},
		{"uniform image", solidImage(10, 10, color.White), Options{"autocrop"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := AutocropStage(tt.im, Size{Width: 5, Height: 5}, tt.opts)
			if err != nil {
				t.Fatalf("AutocropStage returned error: %v", err)
			}
			if out.Bounds() != tt.im.Bounds() {
				t.Fatalf("expected unchanged bounds, got %v", out.Bounds())
			}
		})
	}
}

func TestScaleAndCrop(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		size         Size
		opts         Options
		wantW, wantH int
	}{
		{"fit landscape", 400, 200, Size{Width: 100, Height: 100}, nil, 100, 50},
		{"crop exact", 400, 200, Size{Width: 100, Height: 150}, Options{"crop"}, 100, 150},
		{"crop anchored", 400, 200, Size{Width: 50, Height: 50}, Options{"crop=top-left"}, 50, 50},
		{"max covers box", 400, 200, Size{Width: 100, Height: 100}, Options{"max"}, 200, 100},
		{"small source kept", 40, 20, Size{Width: 100, Height: 100}, nil, 40, 20},
		{"small source upscaled", 40, 20, Size{Width: 100, Height: 100}, Options{"upscale"}, 100, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ScaleAndCropStage(solidImage(tt.srcW, tt.srcH, color.Black), tt.size, tt.opts)
			if err != nil {
				t.Fatalf("ScaleAndCropStage returned error: %v", err)
			}
			if b := out.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Fatalf("got %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestScaleAndCropRejectsBadInput(t *testing.T) {
	src := solidImage(10, 10, color.Black)
	if _, err := ScaleAndCropStage(src, Size{Width: MaxDimension + 1, Height: 10}, nil); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
	if _, err := ScaleAndCropStage(src, Size{Width: 0, Height: 10}, nil); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize for zero width, got %v", err)
	}
	if _, err := ScaleAndCropStage(src, Size{Width: 5, Height: 5}, Options{"crop=sideways"}); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}

func TestFiltersStage(t *testing.T) {
	src := solidImage(8, 8, color.NRGBA{R: 120, G: 60, B: 30, A: 255})

	out, err := FiltersStage(src, Size{Width: 8, Height: 8}, Options{"crop", "sharpen", "grayscale", "contrast=10", "unknown=1"})
	if err != nil {
		t.Fatalf("FiltersStage returned error: %v", err)
	}
	if out.Bounds().Dx() != 8 {
		t.Fatalf("filters must not resize, got %v", out.Bounds())
	}

	bad := []Options{
		{"blur=soft"}, {"contrast"}, {"brightness=500"}, {"gamma=0"},
		{"sharpen=Inf"}, {"blur=NaN"}, {"contrast=NaN"}, {"gamma=Inf"}, {"sharpen=1e9"}, {"blur=101"},
	}
	for _, opts := range bad {
		if _, err := FiltersStage(src, Size{Width: 8, Height: 8}, opts); !errors.Is(err, ErrInvalidOption) {
			t.Errorf("FiltersStage(%v): expected ErrInvalidOption, got %v", opts, err)
		}
	}
}

func TestOptionsLookup(t *testing.T) {
	opts := Options{"crop=top", " Quality = 70 ", "upscale"}
	if v, ok := opts.Lookup("crop"); !ok || v != "top" {
		t.Fatalf("Lookup(crop) = %q, %v", v, ok)
	}
	if n, err := opts.Int("quality", 85); err != nil || n != 70 {
		t.Fatalf("Int(quality) = %d, %v", n, err)
	}
	if !opts.Has("upscale") || opts.Has("bw") {
		t.Fatal("Has returned wrong result")
	}
	if _, err := (Options{"quality=high"}).Int("quality", 85); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}
