// Package metrics exports thumbnail pipeline counters to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"

	"github.com/tendant/nailbiter/internal/process"
	"github.com/tendant/nailbiter/pkg/schema"
)

const defaultNamespace = "nailbiter"

// Recorder implements img.Observer.
type Recorder struct {
	thumbnails *promclient.CounterVec
	duration   *promclient.HistogramVec
	deletes    *promclient.CounterVec
}

// NewRecorder registers the thumbnail metrics with reg. A nil reg means the
// default registerer. Registering twice against the same registry reuses the
// existing collectors.
func NewRecorder(namespace string, reg promclient.Registerer) (*Recorder, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	r := &Recorder{
		thumbnails: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnails_total",
			Help:      "Thumbnail generations by spec, status and failure type.",
		}, []string{"spec", "status", "failure_type"}),
		duration: promclient.NewHistogramVec(promclient.HistogramOpts{
			Namespace: namespace,
			Name:      "thumbnail_duration_seconds",
			Help:      "Time to derive and store one thumbnail.",
			Buckets:   promclient.DefBuckets,
		}, []string{"spec"}),
		deletes: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnail_deletes_total",
			Help:      "Derived keys touched by deletes, by outcome.",
		}, []string{"outcome"}),
	}

	var err error
	if r.thumbnails, err = register(reg, r.thumbnails); err != nil {
		return nil, fmt.Errorf("register thumbnails counter: %w", err)
	}
	if r.duration, err = register(reg, r.duration); err != nil {
		return nil, fmt.Errorf("register duration histogram: %w", err)
	}
	if r.deletes, err = register(reg, r.deletes); err != nil {
		return nil, fmt.Errorf("register deletes counter: %w", err)
	}
	return r, nil
}

func register[T promclient.Collector](reg promclient.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are promclient.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, err
}

func (r *Recorder) ObserveThumbnail(spec string, status process.JobStatus, failure schema.FailureType, d time.Duration) {
	if r == nil {
		return
	}
	r.thumbnails.WithLabelValues(spec, string(status), string(failure)).Inc()
	r.duration.WithLabelValues(spec).Observe(d.Seconds())
}

// ObserveDelete counts the outcome of a best-effort delete.
func (r *Recorder) ObserveDelete(deleted, missing, failed int) {
	if r == nil {
		return
	}
	r.deletes.WithLabelValues("deleted").Add(float64(deleted))
	r.deletes.WithLabelValues("missing").Add(float64(missing))
	r.deletes.WithLabelValues("failed").Add(float64(failed))
}
