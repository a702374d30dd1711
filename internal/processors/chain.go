package processors

import (
	"fmt"
	"image"
)

// Stage is a resolved, named chain element.
type Stage struct {
	ID string
	Fn Func
}

// Chain is an ordered list of stages. The output of each stage is the input
// of the next; every stage sees the same size and the full option list.
type Chain []Stage

// IDs returns the stage identifiers in order.
func (c Chain) IDs() []string {
	ids := make([]string, len(c))
	for i, s := range c {
		ids[i] = s.ID
	}
	return ids
}

// Run threads im through every stage. The first failing stage aborts the run
// and is reported as a *StageError. A panicking stage is reported the same way.
func (c Chain) Run(im image.Image, size Size, opts Options) (image.Image, error) {
	for _, stage := range c {
		out, err := runStage(stage, im, size, opts)
		if err != nil {
			return nil, &StageError{Stage: stage.ID, Err: err}
		}
		if out == nil {
			return nil, &StageError{Stage: stage.ID, Err: fmt.Errorf("returned no image")}
		}
		im = out
	}
	return im, nil
}

func runStage(stage Stage, im image.Image, size Size, opts Options) (out image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return stage.Fn(im, size, opts)
}
