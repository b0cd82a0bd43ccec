package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/makerio90/checklist/internal/logfields"
)

// Recorder receives lifecycle engine observations.
type Recorder interface {
	TickCompleted(d time.Duration)
	NextResetComputed(checklist string)
	ChecklistReset(checklist string)
	SaveSucceeded()
	SaveFailed()
}

// Nop discards every observation.
type Nop struct{}

func (Nop) TickCompleted(time.Duration) {}
func (Nop) NextResetComputed(string)    {}
func (Nop) ChecklistReset(string)       {}
func (Nop) SaveSucceeded()              {}
func (Nop) SaveFailed()                 {}

// Prometheus exports engine counters on a private registry.
type Prometheus struct {
	registry     *prom.Registry
	ticks        prom.Counter
	tickDuration prom.Histogram
	computed     *prom.CounterVec
	resets       *prom.CounterVec
	saves        prom.Counter
	saveFailures prom.Counter
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prom.NewRegistry(),
		ticks: prom.NewCounter(prom.CounterOpts{
			Namespace: "checklist", Name: "engine_ticks_total", Help: "Lifecycle engine passes completed",
		}),
		tickDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "checklist", Name: "engine_tick_duration_seconds", Help: "Wall time of one engine pass including persistence",
			Buckets: prom.ExponentialBuckets(0.0005, 4, 8),
		}),
		computed: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "checklist", Name: "next_reset_computed_total", Help: "Next-reset instants computed from a schedule",
		}, []string{"checklist"}),
		resets: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "checklist", Name: "resets_total", Help: "Checklist resets performed",
		}, []string{"checklist"}),
		saves: prom.NewCounter(prom.CounterOpts{
			Namespace: "checklist", Name: "record_saves_total", Help: "Successful record writes",
		}),
		saveFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: "checklist", Name: "record_save_failures_total", Help: "Failed record write attempts",
		}),
	}
	p.registry.MustRegister(p.ticks, p.tickDuration, p.computed, p.resets, p.saves, p.saveFailures)
	p.registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return p
}

func (p *Prometheus) Registry() *prom.Registry { return p.registry }

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) TickCompleted(d time.Duration) {
	p.ticks.Inc()
	p.tickDuration.Observe(d.Seconds())
}

func (p *Prometheus) NextResetComputed(checklist string) {
	p.computed.WithLabelValues(checklist).Inc()
}

func (p *Prometheus) ChecklistReset(checklist string) {
	p.resets.WithLabelValues(checklist).Inc()
}

func (p *Prometheus) SaveSucceeded() { p.saves.Inc() }
func (p *Prometheus) SaveFailed()    { p.saveFailures.Inc() }

// Serve exposes handler on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving metrics", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", logfields.Error(err))
			return err
		}
		return nil
	}
}
