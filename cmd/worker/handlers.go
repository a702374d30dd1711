package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tendant/nailbiter/internal/bus"
	"github.com/tendant/nailbiter/internal/config"
	"github.com/tendant/nailbiter/internal/field"
	"github.com/tendant/nailbiter/internal/img"
	"github.com/tendant/nailbiter/internal/metrics"
	"github.com/tendant/nailbiter/internal/storage"
	"github.com/tendant/nailbiter/pkg/schema"
)

type subjects struct {
	result  string
	cleanup string
}

type worker struct {
	fields   map[string]*field.Field
	store    storage.ReadWriter
	pub      bus.Publisher
	recorder *metrics.Recorder
	subjects subjects
	logger   *slog.Logger
}

func (w *worker) field(name string) (*field.Field, error) {
	if name == "" {
		name = config.DefaultField
	}
	f, ok := w.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", img.ErrConfiguration, name)
	}
	return f, nil
}

func (w *worker) handleUploaded(ctx context.Context, data []byte) error {
	evt, err := bus.Decode[schema.ImageUploaded](data)
	if err != nil {
		return err
	}
	start := time.Now()
	logger := w.logger.With("id", evt.ID, "field", evt.Field, "path", evt.Path)

	done := schema.ThumbnailDone{ID: evt.ID, Field: evt.Field, SourcePath: evt.Path}
	if err := w.generate(ctx, evt, &done, logger); err != nil {
		done.Error = err.Error()
		done.FailureType = img.Classify(err)
		logger.Error("thumbnail request failed", "failure_type", done.FailureType, "err", err)
	}
	done.ProcessingTimeMs = time.Since(start).Milliseconds()
	done.HappenedAt = time.Now().Unix()

	return w.pub.PublishJSON(w.subjects.result, done)
}

func (w *worker) generate(ctx context.Context, evt schema.ImageUploaded, done *schema.ThumbnailDone, logger *slog.Logger) error {
	if evt.Path == "" {
		return fmt.Errorf("%w: event without path", storage.ErrInvalidKey)
	}
	f, err := w.field(evt.Field)
	if err != nil {
		return err
	}
	if !f.GenerateOnSave() {
		logger.Info("generate_on_save disabled, skipping")
		return nil
	}

	report, err := f.Regenerate(ctx, w.store, evt.Path)
	if err != nil {
		return err
	}
	file, err := f.Load(report.Primary)
	if err != nil {
		return err
	}
	done.Results = thumbnailResults(file, report)
	done.TotalProcessed = len(report.Succeeded())
	done.TotalFailed = len(report.Failed())
	logger.Info("thumbnails processed", "processed", done.TotalProcessed, "failed", done.TotalFailed)
	return nil
}

func (w *worker) handleDeleted(ctx context.Context, data []byte) error {
	evt, err := bus.Decode[schema.ImageDeleted](data)
	if err != nil {
		return err
	}
	logger := w.logger.With("id", evt.ID, "field", evt.Field, "path", evt.Path)

	out := schema.ThumbnailsDeleted{ID: evt.ID, Field: evt.Field, SourcePath: evt.Path}
	if err := w.cleanup(ctx, evt, &out); err != nil {
		out.Error = err.Error()
		logger.Error("delete request failed", "err", err)
	}
	out.HappenedAt = time.Now().Unix()

	return w.pub.PublishJSON(w.subjects.cleanup, out)
}

func (w *worker) cleanup(ctx context.Context, evt schema.ImageDeleted, out *schema.ThumbnailsDeleted) error {
	f, err := w.field(evt.Field)
	if err != nil {
		return err
	}
	report, err := f.Delete(ctx, &field.File{Name: evt.Path})
	if err != nil {
		return err
	}
	out.Deleted = report.Deleted
	out.Missing = report.Missing
	for key := range report.Failed {
		out.Failed = append(out.Failed, key)
	}
	sort.Strings(out.Failed)
	w.recorder.ObserveDelete(len(report.Deleted), len(report.Missing), len(report.Failed))
	return nil
}

func thumbnailResults(file *field.File, report *img.SaveReport) []schema.ThumbnailResult {
	urls := map[string]string{}
	for _, t := range file.Thumbnails() {
		urls[t.Name] = t.URL
	}

	results := make([]schema.ThumbnailResult, 0, len(report.Results))
	for _, res := range report.Results {
		out := schema.ThumbnailResult{
			Name:   res.Spec.Name,
			Key:    res.Key,
			Status: string(res.Job.Status),
			DerivationParams: &schema.DerivationParams{
				SourceWidth:    res.SourceWidth,
				SourceHeight:   res.SourceHeight,
				TargetWidth:    res.Spec.Size.Width,
				TargetHeight:   res.Spec.Size.Height,
				Options:        res.Spec.Options,
				Algorithm:      "lanczos",
				ProcessingTime: res.Job.Duration().Milliseconds(),
				GeneratedAt:    res.Job.FinishedAt.Unix(),
			},
		}
		if res.OK() {
			out.URL = urls[res.Spec.Name]
			out.Width, out.Height = res.Width, res.Height
			out.DerivationParams.Format = res.Format.String()
		} else {
			out.Error = res.Err.Error()
			out.FailureType = res.FailureType
		}
		results = append(results, out)
	}
	return results
}
