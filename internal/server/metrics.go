package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	prometheus.MustRegister(
		blobsAddedMetric,
		blobsReleasedMetric,
		assetsPersistedMetric,
		cacheRecordsMetric,
		liveHandlesMetric,
	)
}

var blobsAddedMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "blobcache",
	Subsystem: "cache",
	Name:      "blobs_added_total",
	Help:      "Total records added to the cache by source",
}, []string{"source"})

var blobsReleasedMetric = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "blobcache",
	Subsystem: "cache",
	Name:      "blobs_released_total",
	Help:      "Total records removed from the cache",
})

var assetsPersistedMetric = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "blobcache",
	Subsystem: "store",
	Name:      "assets_persisted_total",
	Help:      "Total cached records written to the asset store",
})

var cacheRecordsMetric = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "blobcache",
	Subsystem: "cache",
	Name:      "records",
	Help:      "Records currently cached",
})

var liveHandlesMetric = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "blobcache",
	Subsystem: "handles",
	Name:      "live",
	Help:      "Object handles currently allocated",
})

func (s *Server) observeCache() {
	cacheRecordsMetric.Set(float64(s.cache.Len()))
	liveHandlesMetric.Set(float64(s.handles.Stats().Live))
}
