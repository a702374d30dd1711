// Package processors provides the image transformation stages that make up a
// thumbnail processor chain, and the registry that resolves stage identifiers
// into callable stages.
package processors

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

var (
	ErrNotFound      = errors.New("processor not found")
	ErrInvalidOption = errors.New("invalid processor option")
	ErrInvalidSize   = errors.New("invalid target size")
)

// Size is a target thumbnail box in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Func is a single stage of a processor chain. A stage must not modify the
// image it receives; it returns either the same image or a new one.
type Func func(im image.Image, size Size, opts Options) (image.Image, error)

// Options is the full, ordered directive list of a thumbnail spec. Directives
// are either bare words ("crop") or key=value pairs ("quality=80").
type Options []string

// Has reports whether a directive with the given key is present, with or
// without a value.
func (o Options) Has(key string) bool {
	_, ok := o.Lookup(key)
	return ok
}

// Lookup returns the value of the first directive with the given key. Bare
// directives yield an empty value.
func (o Options) Lookup(key string) (string, bool) {
	for _, opt := range o {
		k, v := splitOption(opt)
		if k == key {
			return v, true
		}
	}
	return "", false
}

// Float returns the numeric value of key, or def when the key is bare or
// absent.
func (o Options) Float(key string, def float64) (float64, error) {
	v, ok := o.Lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || !finite(f) {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidOption, key, v)
	}
	return f, nil
}

// Int returns the integer value of key, or def when the key is bare or absent.
func (o Options) Int(key string, def int) (int, error) {
	v, ok := o.Lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidOption, key, v)
	}
	return n, nil
}

func splitOption(opt string) (key, value string) {
	opt = strings.TrimSpace(opt)
	if k, v, ok := strings.Cut(opt, "="); ok {
		return strings.ToLower(strings.TrimSpace(k)), strings.TrimSpace(v)
	}
	return strings.ToLower(opt), ""
}

// StageError reports which stage of a chain failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
