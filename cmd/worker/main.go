// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/nailbiter/internal/bus"
	"github.com/tendant/nailbiter/internal/config"
	"github.com/tendant/nailbiter/internal/img"
	"github.com/tendant/nailbiter/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal(slog.New(slog.NewTextHandler(os.Stdout, nil)), "load config", err)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)
	logger.Info("worker starting",
		"nats_url", cfg.NATSURL,
		"uploaded_subject", cfg.UploadedSubject,
		"deleted_subject", cfg.DeletedSubject,
		"queue", cfg.WorkerQueue,
		"storage", cfg.StorageBackend,
		"parallelism", cfg.Parallelism,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cfg.OpenStorage(ctx)
	if err != nil {
		fatal(logger, "open storage", err, "backend", cfg.StorageBackend)
	}

	recorder, err := metrics.NewRecorder("", prometheus.DefaultRegisterer)
	if err != nil {
		fatal(logger, "register metrics", err)
	}

	fields, err := cfg.Fields(store, img.WithLogger(logger), img.WithObserver(recorder))
	if err != nil {
		fatal(logger, "build fields", err, "fields_file", cfg.FieldsFile)
	}
	for name, f := range fields {
		logger.Info("field ready", "field", name, "specs", len(f.Specs()), "generate_on_save", f.GenerateOnSave())
	}

	nc, err := bus.Connect(cfg.NATSURL, "nailbiter-worker",
		bus.WithLogger(logger),
		bus.WithHandlerTimeout(time.Duration(cfg.HandlerTimeoutMs)*time.Millisecond),
	)
	if err != nil {
		fatal(logger, "connect to NATS", err, "nats_url", cfg.NATSURL)
	}
	logger.Info("connected to NATS", "nats_url", cfg.NATSURL)
	defer nc.Close()

	w := &worker{
		fields:   fields,
		store:    store,
		pub:      nc,
		recorder: recorder,
		subjects: subjects{result: cfg.ResultSubject, cleanup: cfg.CleanupSubject},
		logger:   logger,
	}

	if _, err := nc.QueueSubscribeJSON(cfg.UploadedSubject, cfg.WorkerQueue, w.handleUploaded); err != nil {
		fatal(logger, "subscribe", err, "subject", cfg.UploadedSubject)
	}
	if _, err := nc.QueueSubscribeJSON(cfg.DeletedSubject, cfg.WorkerQueue, w.handleDeleted); err != nil {
		fatal(logger, "subscribe", err, "subject", cfg.DeletedSubject)
	}
	logger.Info("listening for events", "subjects", []string{cfg.UploadedSubject, cfg.DeletedSubject}, "queue", cfg.WorkerQueue)

	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("worker shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
