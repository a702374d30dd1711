package processors

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// MaxDimension caps either side of a requested thumbnail.
const MaxDimension = 8192

// ScaleAndCropStage resizes im towards size.
//
//   - "crop": cover the box and cut to exactly size; "crop=<anchor>" picks the
//     kept region (center by default).
//   - "max": cover the box without cutting.
//   - otherwise: fit inside the box, preserving aspect ratio.
//
// Without "upscale", images already smaller than the box are not enlarged
// (crop always yields exactly size).
func ScaleAndCropStage(im image.Image, size Size, opts Options) (image.Image, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSize, size)
	}
	if size.Width > MaxDimension || size.Height > MaxDimension {
		return nil, fmt.Errorf("%w: %s exceeds %dpx", ErrInvalidSize, size, MaxDimension)
	}

	b := im.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty source image")
	}

	if v, ok := opts.Lookup("crop"); ok {
		anchor, err := parseAnchor(v)
		if err != nil {
			return nil, err
		}
		return imaging.Fill(im, size.Width, size.Height, anchor, imaging.Lanczos), nil
	}

	rw := float64(size.Width) / float64(w)
	rh := float64(size.Height) / float64(h)
	r := math.Min(rw, rh)
	if opts.Has("max") {
		r = math.Max(rw, rh)
	}

	if r < 1 || (r > 1 && opts.Has("upscale")) {
		nw := max(1, int(math.Round(float64(w)*r)))
		nh := max(1, int(math.Round(float64(h)*r)))
		return imaging.Resize(im, nw, nh, imaging.Lanczos), nil
	}
	return im, nil
}

func parseAnchor(position string) (imaging.Anchor, error) {
	switch position {
	case "", "center", "centre":
		return imaging.Center, nil
	case "north", "top":
		return imaging.Top, nil
	case "south", "bottom":
		return imaging.Bottom, nil
	case "west", "left":
		return imaging.Left, nil
	case "east", "right":
		return imaging.Right, nil
	case "north-west", "top-left":
		return imaging.TopLeft, nil
	case "north-east", "top-right":
		return imaging.TopRight, nil
	case "south-west", "bottom-left":
		return imaging.BottomLeft, nil
	case "south-east", "bottom-right":
		return imaging.BottomRight, nil
	default:
		return imaging.Center, fmt.Errorf("%w: crop=%q", ErrInvalidOption, position)
	}
}
