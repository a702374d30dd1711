// Package config reads process configuration from the environment and
// builds the storage backend and fields both executables share.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/nailbiter/internal/field"
	"github.com/tendant/nailbiter/internal/img"
	"github.com/tendant/nailbiter/internal/processors"
	"github.com/tendant/nailbiter/internal/storage"
)

// DefaultField is the field name used when no fields file is configured.
const DefaultField = "default"

type S3 struct {
	Bucket          string `env:"AWS_S3_BUCKET" env-default:"media"`
	Region          string `env:"AWS_REGION" env-default:"us-east-1"`
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"true"`
	Prefix          string `env:"AWS_S3_PREFIX" env-default:""`
}

type Config struct {
	NATSURL          string `env:"NATS_URL" env-default:"nats://127.0.0.1:4222"`
	UploadedSubject  string `env:"SUBJECT_IMAGE_UPLOADED" env-default:"images.uploaded"`
	DeletedSubject   string `env:"SUBJECT_IMAGE_DELETED" env-default:"images.deleted"`
	ResultSubject    string `env:"SUBJECT_IMAGE_THUMBNAIL_DONE" env-default:"images.thumbnail.done"`
	CleanupSubject   string `env:"SUBJECT_IMAGE_THUMBNAILS_DELETED" env-default:"images.thumbnails.deleted"`
	WorkerQueue      string `env:"WORKER_QUEUE" env-default:"thumbnail-workers"`
	HandlerTimeoutMs int    `env:"HANDLER_TIMEOUT_MS" env-default:"30000"`

	StorageBackend string `env:"STORAGE_BACKEND" env-default:"fs"`
	DataDir        string `env:"DATA_DIR" env-default:"./data/media"`
	S3             S3

	FieldsFile     string   `env:"FIELDS_FILE" env-default:""`
	MediaURL       string   `env:"MEDIA_URL" env-default:""`
	ThumbWidth     int      `env:"THUMB_WIDTH" env-default:"512"`
	ThumbHeight    int      `env:"THUMB_HEIGHT" env-default:"512"`
	ThumbnailSizes string   `env:"THUMBNAIL_SIZES" env-default:"small:150x150,medium:512x512,large:1024x1024"`
	Filters        []string `env:"THUMBNAIL_FILTERS" env-separator:","`
	Processors     []string `env:"PROCESSORS" env-separator:","`
	GenerateOnSave bool     `env:"GENERATE_ON_SAVE" env-default:"true"`
	Parallelism    int      `env:"PARALLELISM" env-default:"1"`

	MetricsAddr string `env:"METRICS_ADDR" env-default:":9090"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
}

func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ThumbWidth <= 0 {
		return fmt.Errorf("THUMB_WIDTH must be greater than zero (got %d)", c.ThumbWidth)
	}
	if c.ThumbHeight <= 0 {
		return fmt.Errorf("THUMB_HEIGHT must be greater than zero (got %d)", c.ThumbHeight)
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("PARALLELISM must be greater than zero (got %d)", c.Parallelism)
	}
	switch c.StorageBackend {
	case "memory", "fs", "s3":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (supported: memory, fs, s3)", c.StorageBackend)
	}
	return nil
}

// Logger returns a text logger on stdout at LOG_LEVEL.
func (c Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// OpenStorage builds the configured backend.
func (c Config) OpenStorage(ctx context.Context) (storage.ReadWriter, error) {
	switch c.StorageBackend {
	case "memory":
		return storage.NewMemory(), nil
	case "fs":
		return storage.NewFileSystem(c.DataDir)
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:          c.S3.Bucket,
			Region:          c.S3.Region,
			Endpoint:        c.S3.Endpoint,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			UsePathStyle:    c.S3.UsePathStyle,
			Prefix:          c.S3.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

// FieldConfig reads FIELDS_FILE, or declares a single DefaultField from the
// THUMB_* variables when no file is set.
func (c Config) FieldConfig() (*field.FileConfig, error) {
	if c.FieldsFile != "" {
		return field.LoadConfig(c.FieldsFile)
	}

	extras, err := field.ParseSizes(c.ThumbnailSizes)
	if err != nil {
		return nil, fmt.Errorf("parse THUMBNAIL_SIZES: %w", err)
	}
	return &field.FileConfig{
		MediaURL: c.MediaURL,
		Fields: map[string]field.Config{
			DefaultField: {
				Thumbnail: &img.SpecConfig{
					Size: processors.Size{Width: c.ThumbWidth, Height: c.ThumbHeight},
				},
				ExtraThumbnails: extras,
				Filters:         trimAll(c.Filters),
				GenerateOnSave:  c.GenerateOnSave,
				Processors:      trimAll(c.Processors),
				MediaURL:        c.MediaURL,
			},
		},
	}, nil
}

// Fields builds every configured field against store.
func (c Config) Fields(store storage.Storage, opts ...img.Option) (map[string]*field.Field, error) {
	fc, err := c.FieldConfig()
	if err != nil {
		return nil, err
	}
	opts = append([]img.Option{img.WithParallelism(c.Parallelism)}, opts...)
	return fc.Build(store, processors.Default, opts...)
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
