// Package observability holds the service's Prometheus collectors.
package observability

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"method", "route", "status"},
	)

	pixelOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixel_ops_total",
			Help: "Pixel operations by result (ok, invalid_location, malformed_key, ...).",
		},
		[]string{"op", "result"},
	)

	pixelOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixel_op_duration_seconds",
			Help:    "Duration of pixel operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
		},
		[]string{"op"},
	)

	cellCacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cell_cache_results_total",
			Help: "Decoded cell cache lookups by tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)

	cacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis operations by result.",
		},
		[]string{"op", "result"},
	)

	redisOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of Redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
		[]string{"op"},
	)

	hotKeys = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pixel_hot_keys",
			Help: "Number of pixel keys tracked by the hotness model.",
		},
		[]string{"tier"},
	)

	taggingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagging_events_total",
			Help: "Location events handled by the tagging runner, by result.",
		},
		[]string{"result"},
	)

	taggingLag = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tagging_lag_seconds",
			Help: "Approximate lag: now - message.timestamp.",
		},
	)

	hitEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hit_events_total",
			Help: "Pixel hit events by result (queued, dropped, error).",
		},
		[]string{"result"},
	)

	gridInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "earthpixel_grid_info",
			Help: "Configured grid (value is always 1).",
		},
		[]string{"divisions", "width"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		pixelOps, pixelOpDuration,
		cellCacheResults, cacheOps, redisOpDuration,
		hotKeys, taggingEvents, taggingLag, hitEvents, gridInfo,
	}
}

var defaultOnce sync.Once

func init() {
	defaultOnce.Do(func() { register(prometheus.DefaultRegisterer) })
}

// Init additionally registers all collectors on r. Collectors keep working
// (and stay on the default registry) when enabled is false.
func Init(r prometheus.Registerer, enabled bool) {
	if !enabled || r == nil {
		return
	}
	register(r)
}

func register(r prometheus.Registerer) {
	for _, c := range collectors() {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObservePixelOp(op, result string, durationSeconds float64) {
	if result == "" {
		result = "ok"
	}
	pixelOps.WithLabelValues(op, result).Inc()
	pixelOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func IncCellCache(tier, outcome string) {
	cellCacheResults.WithLabelValues(tier, outcome).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOps.WithLabelValues(op, result).Inc()
	redisOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func SetHotKeysGauge(tier string, n int) {
	hotKeys.WithLabelValues(tier).Set(float64(n))
}

func IncTagging(result string) {
	taggingEvents.WithLabelValues(result).Inc()
}

func SetTaggingLagSeconds(v float64) {
	taggingLag.Set(v)
}

func IncHitEvent(result string) {
	hitEvents.WithLabelValues(result).Inc()
}

func SetGridInfo(divisions int, width float64) {
	gridInfo.Reset()
	gridInfo.WithLabelValues(strconv.Itoa(divisions), strconv.FormatFloat(width, 'f', -1, 64)).Set(1)
}
