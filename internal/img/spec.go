package img

import (
	"fmt"

	"github.com/tendant/nailbiter/internal/processors"
)

// PrimaryName is the spec name reserved for a field's main thumbnail.
const PrimaryName = "thumbnail"

// SpecConfig is a declared, not yet validated, thumbnail definition.
type SpecConfig struct {
	Size    processors.Size
	Options []string
}

// NamedSpecConfig is one entry of a field's extra thumbnails.
type NamedSpecConfig struct {
	Name string
	SpecConfig
}

// ThumbnailSpec is a resolved request for one derived image.
type ThumbnailSpec struct {
	Name    string
	Size    processors.Size
	Options processors.Options
}

// empty reports whether nothing was declared. An empty primary is skipped.
func (c SpecConfig) empty() bool {
	return c.Size == (processors.Size{}) && len(c.Options) == 0
}

// ResolveSpecs expands the primary spec and the extras into the worklist of
// thumbnails to generate. A nil or empty primary is skipped. Extras keep their
// declaration order. Invalid sizes and name collisions are configuration
// errors.
func ResolveSpecs(primary *SpecConfig, extras []NamedSpecConfig) ([]ThumbnailSpec, error) {
	specs := make([]ThumbnailSpec, 0, len(extras)+1)
	seen := make(map[string]bool, len(extras)+1)

	if primary != nil && !primary.empty() {
		spec, err := resolveSpec(PrimaryName, *primary)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
		seen[PrimaryName] = true
	}

	for _, extra := range extras {
		if extra.Name == "" {
			return nil, fmt.Errorf("%w: extra thumbnail without a name", ErrConfiguration)
		}
		if extra.Name == PrimaryName {
			return nil, fmt.Errorf("%w: extra thumbnail may not be named %q", ErrConfiguration, PrimaryName)
		}
		if seen[extra.Name] {
			return nil, fmt.Errorf("%w: duplicate thumbnail name %q", ErrConfiguration, extra.Name)
		}
		spec, err := resolveSpec(extra.Name, extra.SpecConfig)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
		seen[extra.Name] = true
	}
	return specs, nil
}

func resolveSpec(name string, cfg SpecConfig) (ThumbnailSpec, error) {
	if cfg.Size == (processors.Size{}) {
		return ThumbnailSpec{}, fmt.Errorf("%w: %s: size is required", ErrConfiguration, name)
	}
	if !cfg.Size.Valid() {
		return ThumbnailSpec{}, fmt.Errorf("%w: %s: size must be positive, got %s", ErrConfiguration, name, cfg.Size)
	}
	opts := make(processors.Options, len(cfg.Options))
	copy(opts, cfg.Options)
	return ThumbnailSpec{Name: name, Size: cfg.Size, Options: opts}, nil
}
