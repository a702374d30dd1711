package img

import (
	"context"
	"errors"

	"github.com/tendant/nailbiter/pkg/schema"
)

var (
	// ErrConfiguration marks malformed thumbnail specs and unresolvable
	// processors. It is raised when a field is built, never during a save.
	ErrConfiguration = errors.New("thumbnail configuration")
	// ErrDecode marks source bytes that are not a readable image.
	ErrDecode = errors.New("decode image")
	// ErrProcessing marks a processor stage or encoder failure.
	ErrProcessing = errors.New("process image")
	// ErrStorage marks a failure reported by the storage collaborator.
	ErrStorage = errors.New("storage")
)

// Classify maps an error returned by this package to a failure type.
func Classify(err error) schema.FailureType {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return schema.FailureTypeCanceled
	case errors.Is(err, ErrConfiguration):
		return schema.FailureTypeConfiguration
	case errors.Is(err, ErrDecode):
		return schema.FailureTypeDecode
	case errors.Is(err, ErrProcessing):
		return schema.FailureTypeProcessing
	case errors.Is(err, ErrStorage):
		return schema.FailureTypeStorage
	default:
		return schema.FailureTypeValidation
	}
}
