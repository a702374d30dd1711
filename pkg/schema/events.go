// pkg/schema/events.go
package schema

// ImageUploaded announces that a source image has been persisted under Path
// for the named field and its thumbnails should be (re)generated.
type ImageUploaded struct {
	ID         string `json:"id"`
	Field      string `json:"field"`
	Path       string `json:"path"`
	HappenedAt int64  `json:"happened_at"`
}

// ImageDeleted announces that a source image is gone and its derived keys
// should be cleaned up.
type ImageDeleted struct {
	ID         string `json:"id"`
	Field      string `json:"field"`
	Path       string `json:"path"`
	HappenedAt int64  `json:"happened_at"`
}

// FailureType classifies why a thumbnail (or a whole request) failed.
type FailureType string

const (
	FailureTypeConfiguration FailureType = "configuration"
	FailureTypeDecode        FailureType = "decode"
	FailureTypeProcessing    FailureType = "processing"
	FailureTypeStorage       FailureType = "storage"
	FailureTypeValidation    FailureType = "validation"
	FailureTypeCanceled      FailureType = "canceled"
)

// Retryable reports whether repeating the same request may succeed.
func (f FailureType) Retryable() bool {
	return f == FailureTypeStorage
}

type DerivationParams struct {
	SourceWidth    int      `json:"source_width"`
	SourceHeight   int      `json:"source_height"`
	TargetWidth    int      `json:"target_width"`
	TargetHeight   int      `json:"target_height"`
	Options        []string `json:"options,omitempty"`
	Algorithm      string   `json:"algorithm"`
	Format         string   `json:"format,omitempty"`
	ProcessingTime int64    `json:"processing_time_ms"`
	GeneratedAt    int64    `json:"generated_at"`
}

type ThumbnailResult struct {
	Name             string            `json:"name"`
	Key              string            `json:"key,omitempty"`
	URL              string            `json:"url,omitempty"`
	Width            int               `json:"width"`
	Height           int               `json:"height"`
	Status           string            `json:"status"`
	Error            string            `json:"error,omitempty"`
	FailureType      FailureType       `json:"failure_type,omitempty"`
	DerivationParams *DerivationParams `json:"derivation_params,omitempty"`
}

type ThumbnailDone struct {
	ID               string            `json:"id"`
	Field            string            `json:"field"`
	SourcePath       string            `json:"source_path"`
	TotalProcessed   int               `json:"total_processed"`
	TotalFailed      int               `json:"total_failed"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	Results          []ThumbnailResult `json:"results,omitempty"`
	Error            string            `json:"error,omitempty"`
	FailureType      FailureType       `json:"failure_type,omitempty"`
	HappenedAt       int64             `json:"happened_at"`
}

// ThumbnailsDeleted reports the outcome of a best-effort cleanup.
type ThumbnailsDeleted struct {
	ID         string   `json:"id"`
	Field      string   `json:"field"`
	SourcePath string   `json:"source_path"`
	Deleted    []string `json:"deleted,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	Failed     []string `json:"failed,omitempty"`
	Error      string   `json:"error,omitempty"`
	HappenedAt int64    `json:"happened_at"`
}
