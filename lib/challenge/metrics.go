package challenge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var SynthesisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "notegate_synthesis_duration_seconds",
	Help:    "The time taken to render a challenge for delivery",
	Buckets: prometheus.DefBuckets,
}, []string{"variant"})
