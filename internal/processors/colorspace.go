package processors

import (
	"image"

	"github.com/disintegration/imaging"
)

// ColorspaceStage normalizes any decoded image model to an NRGBA working copy.
// With the "bw" option the copy is converted to greyscale.
func ColorspaceStage(im image.Image, _ Size, opts Options) (image.Image, error) {
	if opts.Has("bw") {
		return imaging.Grayscale(im), nil
	}
	return imaging.Clone(im), nil
}
