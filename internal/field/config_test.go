package field

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/nailbiter/internal/img"
	"github.com/tendant/nailbiter/internal/processors"
	"github.com/tendant/nailbiter/internal/storage"
)

const fieldsYAML = `
media_url: https://cdn.example.com/media
fields:
  avatar:
    thumbnail: {size: [100, 100], options: [crop]}
    extra_thumbnails:
      zebra: {size: 64x64}
      alpha: {size: [800, 600], options: [upscale]}
      middle: {size: [32, 32], options: [crop, bw]}
    filters: [sharpen]
  cover:
    extra_thumbnails:
      wide: {size: [1200, 400]}
    generate_on_save: false
    media_url: https://static.example.com
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(fieldsYAML))
	if err != nil {
		t.Fatalf("ParseConfig returned error: %v", err)
	}
	if names := cfg.Names(); len(names) != 2 || names[0] != "avatar" || names[1] != "cover" {
		t.Fatalf("unexpected field names: %v", names)
	}

	avatar := cfg.Fields["avatar"]
	if avatar.Thumbnail == nil || avatar.Thumbnail.Size != (processors.Size{Width: 100, Height: 100}) {
		t.Fatalf("unexpected primary: %+v", avatar.Thumbnail)
	}
	var order []string
	for _, extra := range avatar.ExtraThumbnails {
		order = append(order, extra.Name)
	}
	if len(order) != 3 || order[0] != "zebra" || order[1] != "alpha" || order[2] != "middle" {
		t.Fatalf("extra thumbnails lost declaration order: %v", order)
	}
	if avatar.ExtraThumbnails[0].Size != (processors.Size{Width: 64, Height: 64}) {
		t.Fatalf("WxH size not parsed: %+v", avatar.ExtraThumbnails[0])
	}
	if !avatar.GenerateOnSave {
		t.Fatal("generate_on_save must default to true")
	}
	if avatar.MediaURL != "https://cdn.example.com/media" {
		t.Fatalf("media_url not inherited: %s", avatar.MediaURL)
	}

	cover := cfg.Fields["cover"]
	if cover.GenerateOnSave {
		t.Fatal("generate_on_save: false ignored")
	}
	if cover.Thumbnail != nil {
		t.Fatal("cover declares no primary thumbnail")
	}
	if cover.MediaURL != "https://static.example.com" {
		t.Fatalf("media_url override ignored: %s", cover.MediaURL)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"size with three values", "fields:\n  a:\n    thumbnail: {size: [1, 2, 3]}\n"},
		{"bad size string", "fields:\n  a:\n    thumbnail: {size: big}\n"},
		{"extras not a mapping", "fields:\n  a:\n    extra_thumbnails: [small]\n"},
		{"not yaml", "fields: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBuildValidatesEveryField(t *testing.T) {
	cfg, err := ParseConfig([]byte(fieldsYAML))
	if err != nil {
		t.Fatalf("ParseConfig returned error: %v", err)
	}
	fields, err := cfg.Build(storage.NewMemory(), nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(fields["avatar"].Specs()) != 4 {
		t.Fatalf("unexpected avatar specs: %v", fields["avatar"].Specs())
	}

	broken, err := ParseConfig([]byte("fields:\n  a:\n    extra_thumbnails:\n      x: {options: [crop]}\n"))
	if err != nil {
		t.Fatalf("ParseConfig returned error: %v", err)
	}
	if _, err := broken.Build(storage.NewMemory(), nil); !errors.Is(err, img.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for missing size, got %v", err)
	}
}

func TestBuildSkipsEmptyPrimary(t *testing.T) {
	cfg, err := ParseConfig([]byte("fields:\n  a:\n    thumbnail: {}\n    extra_thumbnails:\n      small: {size: 32x32}\n"))
	if err != nil {
		t.Fatalf("ParseConfig returned error: %v", err)
	}
	fields, err := cfg.Build(storage.NewMemory(), nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	specs := fields["a"].Specs()
	if len(specs) != 1 || specs[0].Name != "small" {
		t.Fatalf("expected only the small spec, got %v", specs)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	if err := os.WriteFile(path, []byte(fieldsYAML), 0o644); err != nil {
		t.Fatalf("write fields file: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.Fields) != 2 {
		t.Fatalf("unexpected fields: %v", cfg.Names())
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseSizes(t *testing.T) {
	specs, err := ParseSizes("small:150x150, medium:512x384,large:1024x1024")
	if err != nil {
		t.Fatalf("ParseSizes returned error: %v", err)
	}
	if len(specs) != 3 || specs[1].Name != "medium" || specs[1].Size != (processors.Size{Width: 512, Height: 384}) {
		t.Fatalf("unexpected specs: %+v", specs)
	}

	for _, bad := range []string{"small", "small:150", "small:0x10", "small:10xabc"} {
		if _, err := ParseSizes(bad); err == nil {
			t.Errorf("ParseSizes(%q): expected error", bad)
		}
	}
}
