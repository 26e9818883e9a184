// Package metrics exports dashboard state and client activity as Prometheus
// metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aiswide/gpudash/internal/apiclient"
	"github.com/aiswide/gpudash/internal/dashboard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const namespace = "gpudash"

// Collector holds the exported metrics on a private registry. It implements
// apiclient.Observer.
type Collector struct {
	registry *prometheus.Registry

	gpuSlots  *prometheus.GaugeVec
	servers   *prometheus.GaugeVec
	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	lastPoll  prometheus.Gauge
}

var _ apiclient.Observer = (*Collector)(nil)

// New creates a Collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		gpuSlots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gpu_slots",
			Help:      "GPU slots by node, GPU id and status.",
		}, []string{"node", "gpu", "status"}),
		servers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "servers",
			Help:      "Running servers in the cluster by status.",
		}, []string{"status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Backend requests by method and response code.",
		}, []string{"method", "code"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
		lastPoll: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_poll_timestamp_seconds",
			Help:      "Unix time of the last successful poll.",
		}),
	}
	c.registry.MustRegister(
		c.gpuSlots,
		c.servers,
		c.requests,
		c.refreshes,
		c.lastPoll,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the registry the metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveRequest counts one backend exchange. Transport failures are counted
// with code "error".
func (c *Collector) ObserveRequest(method, _ string, status int, err error) {
	code := strconv.Itoa(status)
	if err != nil {
		code = "error"
	}
	c.requests.WithLabelValues(method, code).Inc()
}

// ObserveRefresh counts one refresh decision.
func (c *Collector) ObserveRefresh(outcome apiclient.RefreshOutcome) {
	c.refreshes.WithLabelValues(string(outcome)).Inc()
}

// UpdateGPU replaces the GPU slot gauges with the snapshot.
func (c *Collector) UpdateGPU(res *dashboard.GPUResources) {
	c.gpuSlots.Reset()
	for node, gpus := range res.GPUData {
		for gpu, slots := range gpus {
			for _, s := range slots {
				c.gpuSlots.WithLabelValues(node, gpu, s.Status).Inc()
			}
		}
	}
	c.touch()
}

// UpdateServers replaces the server gauges with the listing.
func (c *Collector) UpdateServers(rows []dashboard.ServerRow) {
	c.servers.Reset()
	for _, r := range rows {
		c.servers.WithLabelValues(r.Status).Inc()
	}
	c.touch()
}

func (c *Collector) touch() {
	c.lastPoll.Set(float64(time.Now().Unix()))
}

// Handler serves /metrics and /healthz.
func (c *Collector) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	return r
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (c *Collector) Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("serving metrics")
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
			return err
		}
		return nil
	}
}
