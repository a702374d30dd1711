// cmd/nailbiter/main.go
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/tendant/nailbiter/internal/config"
	"github.com/tendant/nailbiter/internal/img"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal(slog.New(slog.NewTextHandler(os.Stderr, nil)), "load config", err)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx := context.Background()
	store, err := cfg.OpenStorage(ctx)
	if err != nil {
		fatal(logger, "open storage", err, "backend", cfg.StorageBackend)
	}
	fields, err := cfg.Fields(store, img.WithLogger(logger))
	if err != nil {
		fatal(logger, "build fields", err, "fields_file", cfg.FieldsFile)
	}

	a := &app{fields: fields, store: store, out: os.Stdout, logger: logger}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fatal(logger, "command failed", err, "args", os.Args[1:])
	}
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
