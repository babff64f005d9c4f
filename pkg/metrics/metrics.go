package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the solver and HTTP metrics exposed on /metrics.
type Collector struct {
	registry *prometheus.Registry

	solvesTotal    *prometheus.CounterVec
	solveDuration  prometheus.Histogram
	solveNodes     prometheus.Counter
	solveRestarts  prometheus.Counter
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	bestCost       prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New builds a collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		solvesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_solves_total",
			Help: "Completed solves by outcome status.",
		}, []string{"status"}),
		solveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_solve_duration_seconds",
			Help:    "Wall-clock duration of solves.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		solveNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_solve_nodes_total",
			Help: "Decision nodes explored across all solves.",
		}),
		solveRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_solve_restarts_total",
			Help: "Search restarts across all solves.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_cost_cache_hits_total",
			Help: "Cost cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_cost_cache_misses_total",
			Help: "Cost cache misses.",
		}),
		bestCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_last_solve_cost",
			Help: "Soft cost of the most recent successful solve.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduler_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	c.registry.MustRegister(
		c.solvesTotal, c.solveDuration, c.solveNodes, c.solveRestarts,
		c.cacheHits, c.cacheMisses, c.bestCost,
		c.httpRequests, c.httpDuration,
	)
	return c
}

// ObserveSolve records the counters of one finished solve.
func (c *Collector) ObserveSolve(status string, cost float64, nodes int64, restarts int, cacheHits, cacheMisses uint64, elapsed time.Duration) {
	c.solvesTotal.WithLabelValues(status).Inc()
	c.solveDuration.Observe(elapsed.Seconds())
	c.solveNodes.Add(float64(nodes))
	c.solveRestarts.Add(float64(restarts))
	c.cacheHits.Add(float64(cacheHits))
	c.cacheMisses.Add(float64(cacheMisses))
	if status == "SUCCESS" {
		c.bestCost.Set(cost)
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (c *Collector) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return func(ctx *gin.Context) {
		h.ServeHTTP(ctx.Writer, ctx.Request)
	}
}

// GinMiddleware captures request counts and latency per route.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		path := ctx.FullPath()
		if path == "" {
			path = ctx.Request.URL.Path
		}
		c.httpRequests.WithLabelValues(ctx.Request.Method, path, statusLabel(ctx.Writer.Status())).Inc()
		c.httpDuration.WithLabelValues(ctx.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
