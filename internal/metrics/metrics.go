// Package metrics exposes Prometheus counters for scan passes, table
// attachment and exports.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "tablepick"

// Collector holds every tablepick metric. It satisfies scan.Observer.
type Collector struct {
	ScansTotal     *prometheus.CounterVec
	TablesAttached prometheus.Counter
	TablesRejected prometheus.Counter
	TablesLive     prometheus.Gauge
	ExportsTotal   *prometheus.CounterVec
	ReloadsTotal   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the metrics with reg. A nil reg gets a private registry so
// tests and one-shot commands never touch the global default.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	c := &Collector{gatherer: reg}

	c.ScansTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_passes_total",
		Help:      "Scan passes run, by root kind (document or boundary)",
	}, []string{"root"})

	c.TablesAttached = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tables_attached_total",
		Help:      "Tables that received selection controls",
	})

	c.TablesRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tables_rejected_total",
		Help:      "Classification rejections, counted per pass",
	})

	c.TablesLive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tables_live",
		Help:      "Attached tables still present in the document",
	})

	c.ExportsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exports_total",
		Help:      "Exports by sink and result",
	}, []string{"sink", "result"})

	c.ReloadsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reloads_total",
		Help:      "Document reloads by trigger",
	}, []string{"trigger"})

	return c
}

// ScanPass counts one pass over a root. Boundary paths are folded into a
// single label value to keep cardinality bounded.
func (c *Collector) ScanPass(root string) {
	kind := "document"
	if strings.Contains(root, ">") {
		kind = "boundary"
	}
	c.ScansTotal.WithLabelValues(kind).Inc()
}

func (c *Collector) TableAttached() { c.TablesAttached.Inc() }
func (c *Collector) TableRejected() { c.TablesRejected.Inc() }

// SetLive records the number of live handles.
func (c *Collector) SetLive(n int) { c.TablesLive.Set(float64(n)) }

// Export records the outcome of one export to sink.
func (c *Collector) Export(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.ExportsTotal.WithLabelValues(sink, result).Inc()
}

// Reload records a document reload caused by trigger (file, poll, manual).
func (c *Collector) Reload(trigger string) {
	c.ReloadsTotal.WithLabelValues(trigger).Inc()
}

// Handler returns the /metrics handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
