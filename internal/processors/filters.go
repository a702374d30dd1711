package processors

import (
	"fmt"
	"image"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
)

// FiltersStage applies post-processing filters in the order they are listed
// in opts. Options that are not filters are skipped.
func FiltersStage(im image.Image, _ Size, opts Options) (image.Image, error) {
	for _, opt := range opts {
		key, value := splitOption(opt)

		var err error
		switch key {
		case "sharpen":
			im, err = withSigma(im, key, value, 1.0, imaging.Sharpen)
		case "detail":
			im = imaging.Sharpen(im, 0.5)
		case "blur":
			im, err = withSigma(im, key, value, 1.0, imaging.Blur)
		case "grayscale":
			im = imaging.Grayscale(im)
		case "invert":
			im = imaging.Invert(im)
		case "contrast":
			im, err = withPercentage(im, key, value, imaging.AdjustContrast)
		case "brightness":
			im, err = withPercentage(im, key, value, imaging.AdjustBrightness)
		case "saturation":
			im, err = withPercentage(im, key, value, imaging.AdjustSaturation)
		case "gamma":
			var g float64
			g, err = parseRequired(key, value)
			if err == nil && g <= 0 {
				err = fmt.Errorf("%w: gamma must be positive, got %v", ErrInvalidOption, g)
			}
			if err == nil {
				im = imaging.AdjustGamma(im, g)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return im, nil
}

// MaxSigma caps blur and sharpen radii.
const MaxSigma = 100.0

func withSigma(im image.Image, key, value string, def float64, fn func(image.Image, float64) *image.NRGBA) (image.Image, error) {
	sigma := def
	if value != "" {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || !finite(v) || v <= 0 || v > MaxSigma {
			return nil, fmt.Errorf("%w: %s must be within (0, %v], got %q", ErrInvalidOption, key, MaxSigma, value)
		}
		sigma = v
	}
	return fn(im, sigma), nil
}

func withPercentage(im image.Image, key, value string, fn func(image.Image, float64) *image.NRGBA) (image.Image, error) {
	pct, err := parseRequired(key, value)
	if err != nil {
		return nil, err
	}
	if pct < -100 || pct > 100 {
		return nil, fmt.Errorf("%w: %s must be within [-100, 100], got %v", ErrInvalidOption, key, pct)
	}
	return fn(im, pct), nil
}

func parseRequired(key, value string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: %s requires a value", ErrInvalidOption, key)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || !finite(v) {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidOption, key, value)
	}
	return v, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
