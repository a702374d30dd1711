// Package field binds a thumbnail configuration to a storage backend and
// exposes the load/save/delete lifecycle of one image attribute.
package field

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/tendant/nailbiter/internal/img"
	"github.com/tendant/nailbiter/internal/processors"
	"github.com/tendant/nailbiter/internal/storage"
)

// Config declares the thumbnails of one field. It is not modified after New.
type Config struct {
	Thumbnail       *img.SpecConfig
	ExtraThumbnails []img.NamedSpecConfig
	// Filters are appended to the options of every spec.
	Filters        []string
	GenerateOnSave bool
	// Processors lists registry identifiers; empty means the default chain.
	Processors []string
	// MediaURL is prepended to stored names to build public URLs.
	MediaURL string
}

// Thumbnail describes a derived image. It is computed from the source name
// and never probes storage.
type Thumbnail struct {
	Name   string
	Width  int
	Height int
	URL    string
}

// File is the value of a field: the stored source and its descriptors.
type File struct {
	Name            string
	URL             string
	Thumbnail       *Thumbnail
	ExtraThumbnails map[string]*Thumbnail

	thumbnails []*Thumbnail
}

// Thumbnails returns every descriptor in spec order.
func (f *File) Thumbnails() []*Thumbnail { return f.thumbnails }

type Field struct {
	name   string
	cfg    Config
	specs  []img.ThumbnailSpec
	engine *img.Engine
	logger *slog.Logger
}

// New resolves the specs and the processor chain of cfg. Any configuration
// problem is reported here, wrapped in img.ErrConfiguration. A nil registry
// means processors.Default.
func New(name string, cfg Config, store storage.Storage, registry *processors.Registry, opts ...img.Option) (*Field, error) {
	if registry == nil {
		registry = processors.Default
	}
	if _, err := url.Parse(cfg.MediaURL); err != nil {
		return nil, fmt.Errorf("%w: field %s: media url: %w", img.ErrConfiguration, name, err)
	}

	primary, extras := withFilters(cfg)
	specs, err := img.ResolveSpecs(primary, extras)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}

	chain, err := registry.Resolve(cfg.Processors)
	if err != nil {
		return nil, fmt.Errorf("%w: field %s: %w", img.ErrConfiguration, name, err)
	}

	engineOpts := append([]img.Option{}, opts...)
	engine, err := img.NewEngine(store, append(engineOpts, img.WithChain(chain))...)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}

	return &Field{
		name:   name,
		cfg:    cfg,
		specs:  specs,
		engine: engine,
		logger: slog.Default().With("field", name),
	}, nil
}

func withFilters(cfg Config) (*img.SpecConfig, []img.NamedSpecConfig) {
	merge := func(opts []string) []string {
		out := make([]string, 0, len(opts)+len(cfg.Filters))
		out = append(out, opts...)
		return append(out, cfg.Filters...)
	}

	var primary *img.SpecConfig
	if cfg.Thumbnail != nil {
		primary = &img.SpecConfig{Size: cfg.Thumbnail.Size, Options: merge(cfg.Thumbnail.Options)}
	}
	extras := make([]img.NamedSpecConfig, len(cfg.ExtraThumbnails))
	for i, extra := range cfg.ExtraThumbnails {
		extras[i] = img.NamedSpecConfig{
			Name:       extra.Name,
			SpecConfig: img.SpecConfig{Size: extra.Size, Options: merge(extra.Options)},
		}
	}
	return primary, extras
}

// WithLogger replaces the field's logger. The engine logger is set through
// img.WithLogger when the field is built.
func (f *Field) WithLogger(logger *slog.Logger) *Field {
	f.logger = logger.With("field", f.name)
	return f
}

func (f *Field) Name() string { return f.name }

// Specs returns the resolved worklist, primary first.
func (f *Field) Specs() []img.ThumbnailSpec { return f.specs }

func (f *Field) Engine() *img.Engine { return f.engine }

// GenerateOnSave reports whether saves derive thumbnails.
func (f *Field) GenerateOnSave() bool { return f.cfg.GenerateOnSave }

// Load builds the value for a stored source name. An empty name yields an
// empty File without descriptors.
func (f *Field) Load(name string) (*File, error) {
	file := &File{Name: name, ExtraThumbnails: map[string]*Thumbnail{}}
	if name == "" {
		return file, nil
	}
	file.URL = f.sourceURL(name)

	for _, spec := range f.specs {
		u, err := img.ThumbnailURL(file.URL, name, spec.Name, spec.Size)
		if err != nil {
			return nil, fmt.Errorf("field %s: %s url: %w", f.name, spec.Name, err)
		}
		thumb := &Thumbnail{Name: spec.Name, Width: spec.Size.Width, Height: spec.Size.Height, URL: u}
		file.thumbnails = append(file.thumbnails, thumb)
		if spec.Name == img.PrimaryName {
			file.Thumbnail = thumb
		} else {
			file.ExtraThumbnails[spec.Name] = thumb
		}
	}
	return file, nil
}

func (f *Field) sourceURL(name string) string {
	if f.cfg.MediaURL == "" {
		return "/" + strings.TrimPrefix(name, "/")
	}
	return strings.TrimSuffix(f.cfg.MediaURL, "/") + "/" + strings.TrimPrefix(name, "/")
}

// Save stores content under name and, when generate_on_save is enabled,
// derives its thumbnails. Thumbnail failures are logged and reported, never
// returned.
func (f *Field) Save(ctx context.Context, name string, content []byte) (*File, *img.SaveReport, error) {
	var specs []img.ThumbnailSpec
	if f.cfg.GenerateOnSave {
		specs = f.specs
	}

	report, err := f.engine.SaveWithThumbnails(ctx, name, content, specs)
	if err != nil {
		return nil, nil, err
	}
	if failed := report.Failed(); len(failed) > 0 {
		f.logger.Warn("some thumbnails were not generated", "key", report.Primary, "failed", len(failed), "err", report.Err())
	}

	file, err := f.Load(report.Primary)
	if err != nil {
		return nil, report, err
	}
	return file, report, nil
}

// Generate derives the thumbnails of a source that is already stored.
func (f *Field) Generate(ctx context.Context, name string, content []byte) *img.SaveReport {
	return f.engine.GenerateThumbnails(ctx, name, content, f.specs)
}

// Regenerate reads the source from r and derives its thumbnails again.
func (f *Field) Regenerate(ctx context.Context, r storage.Reader, name string) (*img.SaveReport, error) {
	content, err := r.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", img.ErrStorage, name, err)
	}
	return f.Generate(ctx, name, content), nil
}

// Delete removes the source and, best effort, every derived key. A nil or
// empty file is a no-op.
func (f *Field) Delete(ctx context.Context, file *File) (*img.DeleteReport, error) {
	if file == nil || file.Name == "" {
		return &img.DeleteReport{Failed: map[string]error{}}, nil
	}
	return f.engine.DeleteWithThumbnails(ctx, file.Name, f.specs)
}
