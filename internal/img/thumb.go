// internal/img/thumb.go
package img

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/tendant/nailbiter/internal/processors"
)

// Output is one encoded thumbnail ready for storage.
type Output struct {
	Data   []byte
	Format imaging.Format
	Width  int
	Height int
}

// Decode reads an image from content, applying EXIF orientation. The second
// return value is the name of the decoder that recognized the bytes
// ("jpeg", "png", "webp", ...).
func Decode(content []byte) (image.Image, string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	src, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrDecode, format, err)
	}
	return normalize(src), format, nil
}

// normalize converts color models the stages and encoders handle poorly
// (paletted images with transparency in particular) to NRGBA.
func normalize(im image.Image) image.Image {
	switch im.(type) {
	case *image.Paletted, *image.CMYK, *image.Alpha, *image.Alpha16:
		return imaging.Clone(im)
	}
	return im
}

// render runs chain over src for spec and encodes the result.
func render(src image.Image, sourceFormat string, spec ThumbnailSpec, chain processors.Chain) (*Output, error) {
	thumb, err := chain.Run(src, spec.Size, spec.Options)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProcessing, spec.Name, err)
	}

	format := OutputFormat(sourceFormat)
	data, err := Encode(thumb, format, spec.Options)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProcessing, spec.Name, err)
	}

	b := thumb.Bounds()
	return &Output{Data: data, Format: format, Width: b.Dx(), Height: b.Dy()}, nil
}
