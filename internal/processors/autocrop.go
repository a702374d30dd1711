package processors

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// autocropTolerance is the per-channel difference still treated as border.
const autocropTolerance = 8

// AutocropStage trims uniform borders when the "autocrop" option is present.
// The border colour is sampled from the top-left pixel. Images without a
// uniform border, and images that are uniform everywhere, pass through.
func AutocropStage(im image.Image, _ Size, opts Options) (image.Image, error) {
	if !opts.Has("autocrop") {
		return im, nil
	}

	src, ok := im.(*image.NRGBA)
	if !ok {
		src = imaging.Clone(im)
	}

	rect := contentBounds(src, autocropTolerance)
	if rect.Empty() || rect == src.Bounds() {
		return im, nil
	}
	return imaging.Crop(src, rect), nil
}

// contentBounds returns the smallest rectangle outside of which every row and
// column matches the border colour. An empty rectangle means the whole image
// is border.
func contentBounds(src *image.NRGBA, tol int) image.Rectangle {
	b := src.Bounds()
	if b.Empty() {
		return image.Rectangle{}
	}
	ref := src.NRGBAAt(b.Min.X, b.Min.Y)

	rowIsBorder := func(y, x0, x1 int) bool {
		for x := x0; x < x1; x++ {
			if !near(src.NRGBAAt(x, y), ref, tol) {
				return false
			}
		}
		return true
	}
	colIsBorder := func(x, y0, y1 int) bool {
		for y := y0; y < y1; y++ {
			if !near(src.NRGBAAt(x, y), ref, tol) {
				return false
			}
		}
		return true
	}

	top, bottom, left, right := b.Min.Y, b.Max.Y, b.Min.X, b.Max.X
	for top < bottom && rowIsBorder(top, left, right) {
		top++
	}
	if top == bottom {
		return image.Rectangle{}
	}
	for bottom > top && rowIsBorder(bottom-1, left, right) {
		bottom--
	}
	for left < right && colIsBorder(left, top, bottom) {
		left++
	}
	for right > left && colIsBorder(right-1, top, bottom) {
		right--
	}
	return image.Rect(left, top, right, bottom)
}

func near(a, b color.NRGBA, tol int) bool {
	return absDiff(a.R, b.R) <= tol &&
		absDiff(a.G, b.G) <= tol &&
		absDiff(a.B, b.B) <= tol &&
		absDiff(a.A, b.A) <= tol
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
