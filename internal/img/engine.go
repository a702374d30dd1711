package img

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/nailbiter/internal/process"
	"github.com/tendant/nailbiter/internal/processors"
	"github.com/tendant/nailbiter/internal/storage"
	"github.com/tendant/nailbiter/pkg/schema"
)

// JobKind is the process.Job kind used for one thumbnail cycle.
const JobKind = "thumbnail"

// Observer is notified once per spec after its cycle finished.
type Observer interface {
	ObserveThumbnail(spec string, status process.JobStatus, failure schema.FailureType, d time.Duration)
}

// Engine derives thumbnails from source bytes and hands them to storage.
// It holds no per-save state and is safe for concurrent use.
type Engine struct {
	store       storage.Storage
	chain       processors.Chain
	logger      *slog.Logger
	observer    Observer
	parallelism int
}

type Option func(*Engine)

// WithChain sets the processor chain. Defaults to the default registry's
// default chain.
func WithChain(chain processors.Chain) Option {
	return func(e *Engine) { e.chain = chain }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithParallelism bounds the number of specs processed at once. Each worker
// decodes its own copy of the source, so n also bounds the number of decoded
// images held in memory.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallelism = n }
}

func NewEngine(store storage.Storage, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: storage is required", ErrConfiguration)
	}
	e := &Engine{store: store, logger: slog.Default(), parallelism: 1}
	for _, opt := range opts {
		opt(e)
	}
	if e.chain == nil {
		chain, err := processors.Default.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		e.chain = chain
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.parallelism < 1 {
		e.parallelism = 1
	}
	return e, nil
}

// Chain returns the processor chain the engine runs.
func (e *Engine) Chain() processors.Chain { return e.chain }

// Result describes the outcome of one spec.
type Result struct {
	Spec         ThumbnailSpec
	Key          string
	Format       imaging.Format
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
	Job          *process.Job
	Err          error
	FailureType  schema.FailureType
}

func (r Result) OK() bool { return r.Err == nil }

// SaveReport lists one Result per spec, in spec order.
type SaveReport struct {
	ID      string
	Primary string
	Results []Result
}

func (r *SaveReport) Succeeded() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.OK() {
			out = append(out, res)
		}
	}
	return out
}

func (r *SaveReport) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Err joins the errors of all failed specs, or returns nil.
func (r *SaveReport) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Spec.Name, res.Err))
	}
	return errors.Join(errs...)
}

// DeleteReport lists the derived keys touched by a delete.
type DeleteReport struct {
	Primary string
	Deleted []string
	Missing []string
	Failed  map[string]error
}

// Generate decodes src and produces the thumbnail described by spec. A nil
// chain means the engine's chain.
func (e *Engine) Generate(src []byte, spec ThumbnailSpec, chain processors.Chain) (*Output, error) {
	im, format, err := Decode(src)
	if err != nil {
		return nil, err
	}
	if chain == nil {
		chain = e.chain
	}
	return render(im, format, spec, chain)
}

// SaveWithThumbnails persists content under name and then derives every spec
// from it. Only a failure to store the primary content is returned as an
// error; per-spec failures are reported in the SaveReport.
func (e *Engine) SaveWithThumbnails(ctx context.Context, name string, content []byte, specs []ThumbnailSpec) (*SaveReport, error) {
	key, err := e.store.Save(ctx, name, content)
	if err != nil {
		return nil, fmt.Errorf("%w: save %s: %w", ErrStorage, name, err)
	}
	return e.GenerateThumbnails(ctx, key, content, specs), nil
}

// GenerateThumbnails derives every spec from content, which is already stored
// under key. An empty spec list does not decode anything.
func (e *Engine) GenerateThumbnails(ctx context.Context, key string, content []byte, specs []ThumbnailSpec) *SaveReport {
	report := &SaveReport{
		ID:      uuid.NewString(),
		Primary: key,
		Results: make([]Result, len(specs)),
	}
	if len(specs) == 0 {
		return report
	}

	logger := e.logger.With("report", report.ID, "key", key)
	if e.parallelism > 1 && len(specs) > 1 {
		e.generateParallel(ctx, logger, key, content, specs, report.Results)
	} else {
		e.generateSequential(ctx, logger, key, content, specs, report.Results)
	}

	logger.Info("thumbnails generated",
		"total", len(specs),
		"failed", len(report.Failed()),
	)
	return report
}

func (e *Engine) generateSequential(ctx context.Context, logger *slog.Logger, key string, content []byte, specs []ThumbnailSpec, results []Result) {
	src, format, err := Decode(content)
	for i, spec := range specs {
		if err != nil {
			results[i] = e.fail(logger, e.start(key, spec, nil), err)
			continue
		}
		results[i] = e.runSpec(ctx, logger, key, imaging.Clone(src), format, spec)
	}
}

func (e *Engine) generateParallel(ctx context.Context, logger *slog.Logger, key string, content []byte, specs []ThumbnailSpec, results []Result) {
	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i, spec := range specs {
		g.Go(func() error {
			src, format, err := Decode(content)
			if err != nil {
				results[i] = e.fail(logger, e.start(key, spec, nil), err)
				return nil
			}
			results[i] = e.runSpec(ctx, logger, key, src, format, spec)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) start(key string, spec ThumbnailSpec, src image.Image) Result {
	job := process.NewJob(JobKind, spec.Name)
	process.MarkRunning(job)
	res := Result{
		Spec: spec,
		Key:  ThumbnailName(key, spec.Name, spec.Size),
		Job:  job,
	}
	if src != nil {
		b := src.Bounds()
		res.SourceWidth, res.SourceHeight = b.Dx(), b.Dy()
	}
	return res
}

func (e *Engine) runSpec(ctx context.Context, logger *slog.Logger, key string, src image.Image, format string, spec ThumbnailSpec) Result {
	res := e.start(key, spec, src)

	if err := ctx.Err(); err != nil {
		return e.fail(logger, res, err)
	}

	out, err := render(src, format, spec, e.chain)
	if err != nil {
		return e.fail(logger, res, err)
	}
	res.Format = out.Format
	res.Width, res.Height = out.Width, out.Height

	if _, err := e.store.Save(ctx, res.Key, out.Data); err != nil {
		return e.fail(logger, res, fmt.Errorf("%w: save %s: %w", ErrStorage, res.Key, err))
	}

	process.MarkSucceeded(res.Job)
	logger.Debug("thumbnail stored",
		"spec", spec.Name,
		"thumb_key", res.Key,
		"width", res.Width,
		"height", res.Height,
		"format", res.Format.String(),
	)
	e.observe(res)
	return res
}

func (e *Engine) fail(logger *slog.Logger, res Result, err error) Result {
	process.MarkFailed(res.Job, err)
	res.Err = err
	res.FailureType = Classify(err)
	logger.Warn("thumbnail generation failed",
		"spec", res.Spec.Name,
		"thumb_key", res.Key,
		"failure_type", res.FailureType,
		"err", err,
	)
	e.observe(res)
	return res
}

func (e *Engine) observe(res Result) {
	if e.observer == nil {
		return
	}
	e.observer.ObserveThumbnail(res.Spec.Name, res.Job.Status, res.FailureType, res.Job.Duration())
}

// DeleteWithThumbnails removes the primary content and then every derived
// key. A missing primary is not an error; any other primary failure is
// returned before derived keys are touched. Failures on derived keys are
// never returned, only logged and listed in the report.
func (e *Engine) DeleteWithThumbnails(ctx context.Context, name string, specs []ThumbnailSpec) (*DeleteReport, error) {
	report := &DeleteReport{Primary: name, Failed: map[string]error{}}
	logger := e.logger.With("key", name)

	if err := e.store.Delete(ctx, name); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: delete %s: %w", ErrStorage, name, err)
		}
		logger.Debug("primary already absent")
	}

	for _, spec := range specs {
		key := ThumbnailName(name, spec.Name, spec.Size)
		err := e.store.Delete(ctx, key)
		switch {
		case err == nil:
			report.Deleted = append(report.Deleted, key)
		case errors.Is(err, storage.ErrNotFound):
			report.Missing = append(report.Missing, key)
		default:
			report.Failed[key] = err
			logger.Warn("delete thumbnail failed", "spec", spec.Name, "thumb_key", key, "err", err)
		}
	}
	return report, nil
}
