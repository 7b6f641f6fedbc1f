// Package metricswrap wraps a hotness tracker with Prometheus metrics and
// sampled threshold logging.
package metricswrap

import (
	"fmt"
	"log/slog"

	xx "github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/earthpixel/internal/core/observability"
	"github.com/mohammed-shakir/earthpixel/internal/hotness"
)

type Sizer interface{ Size() int }

type Options struct {
	Tier      string
	Threshold float64 // 0 disables threshold logging
	LogSample float64 // fraction of keys logged when crossing Threshold
	Logger    *slog.Logger
}

type WithMetrics struct {
	inner hotness.Interface
	opts  Options
}

var _ hotness.Interface = (*WithMetrics)(nil)

func New(inner hotness.Interface, opts Options) *WithMetrics {
	if opts.Tier == "" {
		opts.Tier = "keys"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &WithMetrics{inner: inner, opts: opts}
}

func (w *WithMetrics) Inc(key string) {
	w.inner.Inc(key)
	if w.opts.Threshold > 0 {
		score := w.inner.Score(key)
		if score >= w.opts.Threshold && shouldLog(w.opts.LogSample, key) {
			w.opts.Logger.Info("hot pixel above threshold",
				"event", "hotness_threshold",
				"score", score,
				"tier", w.opts.Tier,
				"key_hash", fmt.Sprintf("%08x", xx.Sum64String(key)),
			)
		}
	}
	w.report()
}

func (w *WithMetrics) Score(key string) float64 {
	return w.inner.Score(key)
}

func (w *WithMetrics) Reset(keys ...string) {
	w.inner.Reset(keys...)
	w.report()
}

func (w *WithMetrics) report() {
	if s, ok := w.inner.(Sizer); ok {
		observability.SetHotKeysGauge(w.opts.Tier, s.Size())
	}
}

func shouldLog(sample float64, key string) bool {
	if sample <= 0 {
		return false
	}
	if sample >= 1 {
		return true
	}
	const denom = 10000 // 0.01 => 100/10000
	threshold := uint64(sample*denom + 0.5)
	if threshold == 0 {
		return false
	}
	h := xx.Sum64String(key)
	return (h % denom) < threshold
}
