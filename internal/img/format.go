package img

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/tendant/nailbiter/internal/processors"
)

const (
	// DefaultFormat is used when the source format is unknown or cannot be
	// encoded.
	DefaultFormat = imaging.JPEG
	// DefaultQuality is the JPEG quality unless a spec sets "quality=N".
	DefaultQuality = 85
)

// OutputFormat picks the encoding for a thumbnail from the format reported by
// the decoder. Aliases such as "JPG" normalize to JPEG.
func OutputFormat(declared string) imaging.Format {
	if declared == "" {
		return DefaultFormat
	}
	f, err := imaging.FormatFromExtension(declared)
	if err != nil {
		return DefaultFormat
	}
	return f
}

// Encode serializes im. JPEG output has any transparency flattened onto white.
func Encode(im image.Image, format imaging.Format, opts processors.Options) ([]byte, error) {
	var encodeOpts []imaging.EncodeOption

	if format == imaging.JPEG {
		quality, err := opts.Int("quality", DefaultQuality)
		if err != nil {
			return nil, err
		}
		if quality < 1 || quality > 100 {
			return nil, fmt.Errorf("%w: quality must be within [1, 100], got %d", processors.ErrInvalidOption, quality)
		}
		encodeOpts = append(encodeOpts, imaging.JPEGQuality(quality))
		im = flatten(im)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, im, format, encodeOpts...); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

func flatten(im image.Image) image.Image {
	if o, ok := im.(interface{ Opaque() bool }); ok && o.Opaque() {
		return im
	}
	b := im.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, im, image.Pt(0, 0), 1.0)
}
