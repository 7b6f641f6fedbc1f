package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metricSet struct {
	proc *prometheus.HistogramVec
}

func newMetricSet(r prometheus.Registerer) *metricSet {
	m := &metricSet{
		proc: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tagging_processing_seconds",
				Help:    "Processing time for one location event, by result.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
			},
			[]string{"result"},
		),
	}
	if r != nil {
		r.MustRegister(m.proc)
	}
	return m
}
