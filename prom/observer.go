// Package prom adapts the pipeline's metrics observer to Prometheus.
//
// The adapter is an in-process registry sink only; exposing the registry
// (promhttp or otherwise) is the embedding application's business.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumapix/pixcache"
	"github.com/lumapix/pixcache/fingerprint"
)

// Observer implements pixcache.Observer on Prometheus collectors.
// Digest values are high-cardinality and deliberately not used as labels.
type Observer struct {
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	downloadDuration *prometheus.HistogramVec
	decodeDuration   *prometheus.HistogramVec
}

// NewObserver creates the collectors and registers them with reg.
// Registration failures panic, matching promauto conventions; use a fresh
// registry per pipeline.
func NewObserver(reg prometheus.Registerer) *Observer {
	o := &Observer{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pixcache",
			Name:      "cache_hits_total",
			Help:      "Loads served from a cache tier.",
		}, []string{"tier", "variant"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pixcache",
			Name:      "cache_misses_total",
			Help:      "Loads that fell through to the transport.",
		}, []string{"variant"}),
		downloadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pixcache",
			Name:      "download_duration_seconds",
			Help:      "Transport fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"variant"}),
		decodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pixcache",
			Name:      "decode_duration_seconds",
			Help:      "Bitmap decode latency by byte source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"variant", "source"}),
	}

	reg.MustRegister(o.cacheHits, o.cacheMisses, o.downloadDuration, o.decodeDuration)
	return o
}

func (o *Observer) OnCacheHit(digest string, variant fingerprint.Variant, tier pixcache.Tier) {
	o.cacheHits.WithLabelValues(string(tier), variant.String()).Inc()
}

func (o *Observer) OnCacheMiss(digest string, variant fingerprint.Variant) {
	o.cacheMisses.WithLabelValues(variant.String()).Inc()
}

func (o *Observer) OnDownloadCompleted(digest string, variant fingerprint.Variant, duration time.Duration) {
	o.downloadDuration.WithLabelValues(variant.String()).Observe(duration.Seconds())
}

func (o *Observer) OnDecodeCompleted(digest string, variant fingerprint.Variant, duration time.Duration, source pixcache.DecodeSource) {
	o.decodeDuration.WithLabelValues(variant.String(), string(source)).Observe(duration.Seconds())
}
