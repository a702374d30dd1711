package field

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tendant/nailbiter/internal/img"
	"github.com/tendant/nailbiter/internal/processors"
	"github.com/tendant/nailbiter/internal/storage"
)

// FileConfig is the parsed form of a fields file:
//
//	media_url: https://cdn.example.com/media
//	fields:
//	  avatar:
//	    thumbnail: {size: [100, 100], options: [crop]}
//	    extra_thumbnails:
//	      small: {size: 32x32, options: [crop, bw]}
//	      large: {size: [800, 600]}
//	    filters: [sharpen]
//	    generate_on_save: true
//
// extra_thumbnails keep the order in which they are written.
type FileConfig struct {
	MediaURL string
	Fields   map[string]Config
}

type fileYAML struct {
	MediaURL string               `yaml:"media_url"`
	Fields   map[string]fieldYAML `yaml:"fields"`
}

type fieldYAML struct {
	Thumbnail       *specYAML    `yaml:"thumbnail"`
	ExtraThumbnails orderedSpecs `yaml:"extra_thumbnails"`
	Filters         []string     `yaml:"filters"`
	GenerateOnSave  *bool        `yaml:"generate_on_save"`
	Processors      []string     `yaml:"processors"`
	MediaURL        string       `yaml:"media_url"`
}

type specYAML struct {
	Size    sizeYAML `yaml:"size"`
	Options []string `yaml:"options"`
}

func (s specYAML) config() img.SpecConfig {
	return img.SpecConfig{Size: processors.Size(s.Size), Options: s.Options}
}

// sizeYAML accepts either [w, h] or "WxH".
type sizeYAML processors.Size

func (s *sizeYAML) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var dims []int
		if err := node.Decode(&dims); err != nil {
			return err
		}
		if len(dims) != 2 {
			return fmt.Errorf("line %d: size needs two values, got %d", node.Line, len(dims))
		}
		*s = sizeYAML{Width: dims[0], Height: dims[1]}
		return nil
	case yaml.ScalarNode:
		size, err := ParseSize(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*s = sizeYAML(size)
		return nil
	default:
		return fmt.Errorf("line %d: size must be [width, height] or \"WxH\"", node.Line)
	}
}

type orderedSpecs []img.NamedSpecConfig

func (o *orderedSpecs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: extra_thumbnails must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		var spec specYAML
		if err := node.Content[i+1].Decode(&spec); err != nil {
			return fmt.Errorf("extra thumbnail %s: %w", name, err)
		}
		*o = append(*o, img.NamedSpecConfig{Name: name, SpecConfig: spec.config()})
	}
	return nil
}

// ParseConfig parses a fields file. generate_on_save defaults to true and a
// field without media_url inherits the top-level one.
func ParseConfig(data []byte) (*FileConfig, error) {
	var raw fileYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse fields: %w", img.ErrConfiguration, err)
	}

	out := &FileConfig{MediaURL: raw.MediaURL, Fields: make(map[string]Config, len(raw.Fields))}
	for name, f := range raw.Fields {
		cfg := Config{
			ExtraThumbnails: f.ExtraThumbnails,
			Filters:         f.Filters,
			GenerateOnSave:  true,
			Processors:      f.Processors,
			MediaURL:        raw.MediaURL,
		}
		if f.Thumbnail != nil {
			primary := f.Thumbnail.config()
			cfg.Thumbnail = &primary
		}
		if f.GenerateOnSave != nil {
			cfg.GenerateOnSave = *f.GenerateOnSave
		}
		if f.MediaURL != "" {
			cfg.MediaURL = f.MediaURL
		}
		out.Fields[name] = cfg
	}
	return out, nil
}

// LoadConfig reads and parses a fields file.
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fields file: %w", err)
	}
	return ParseConfig(data)
}

// Names returns the configured field names, sorted.
func (c *FileConfig) Names() []string {
	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs every field against one storage backend.
func (c *FileConfig) Build(store storage.Storage, registry *processors.Registry, opts ...img.Option) (map[string]*Field, error) {
	fields := make(map[string]*Field, len(c.Fields))
	for _, name := range c.Names() {
		f, err := New(name, c.Fields[name], store, registry, opts...)
		if err != nil {
			return nil, err
		}
		fields[name] = f
	}
	return fields, nil
}

// ParseSize parses "WxH".
func ParseSize(value string) (processors.Size, error) {
	dims := strings.Split(strings.TrimSpace(value), "x")
	if len(dims) != 2 {
		return processors.Size{}, fmt.Errorf("invalid dimensions '%s', expected 'widthxheight'", value)
	}

	width, err := strconv.Atoi(strings.TrimSpace(dims[0]))
	if err != nil || width <= 0 {
		return processors.Size{}, fmt.Errorf("invalid width in '%s'", value)
	}
	height, err := strconv.Atoi(strings.TrimSpace(dims[1]))
	if err != nil || height <= 0 {
		return processors.Size{}, fmt.Errorf("invalid height in '%s'", value)
	}
	return processors.Size{Width: width, Height: height}, nil
}

// ParseSizes parses the "name:WxH,name:WxH" shorthand into extra thumbnail
// declarations, keeping their order.
func ParseSizes(value string) ([]img.NamedSpecConfig, error) {
	var specs []img.NamedSpecConfig
	for _, pair := range strings.Split(value, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		parts := strings.Split(strings.TrimSpace(pair), ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid size format '%s', expected 'name:widthxheight'", pair)
		}

		size, err := ParseSize(parts[1])
		if err != nil {
			return nil, err
		}
		specs = append(specs, img.NamedSpecConfig{
			Name:       strings.TrimSpace(parts[0]),
			SpecConfig: img.SpecConfig{Size: size},
		})
	}
	return specs, nil
}
