package cache

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HitsTotal counts lookups answered from the cache
	HitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metadata_cache_hits_total",
			Help: "Metadata lookups answered from the cache.",
		},
		[]string{"group"},
	)

	// MissesTotal counts lookups that had to run the fetcher
	MissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metadata_cache_misses_total",
			Help: "Metadata lookups not found in the cache.",
		},
		[]string{"group"},
	)

	// EvictionsTotal counts entries dropped for capacity, expiry, deletion or purge
	EvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metadata_cache_evictions_total",
			Help: "Entries removed from the metadata cache.",
		},
		[]string{"group"},
	)
)

func init() {
	prometheus.MustRegister(HitsTotal, MissesTotal, EvictionsTotal)
}

// entriesScrapeTimeout bounds the Len call a scrape makes against Redis
const entriesScrapeTimeout = time.Second

var (
	gaugesMu sync.Mutex
	gauges   = map[string]prometheus.GaugeFunc{}
	// tests swap this for an isolated registry
	gaugeRegisterer prometheus.Registerer = prometheus.DefaultRegisterer
)

// registerEntriesGauge exposes Len() of the group's cache at scrape time,
// replacing a gauge left by an earlier cache of the same group.
func registerEntriesGauge(group string, c Cache) {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "metadata_cache_entries",
		Help:        "Live entries in the metadata cache.",
		ConstLabels: prometheus.Labels{"group": group},
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), entriesScrapeTimeout)
		defer cancel()
		return float64(c.Len(ctx))
	})

	gaugesMu.Lock()
	defer gaugesMu.Unlock()
	if old, ok := gauges[group]; ok {
		gaugeRegisterer.Unregister(old)
	}
	gauges[group] = gauge
	_ = gaugeRegisterer.Register(gauge)
}

func unregisterEntriesGauge(group string) {
	gaugesMu.Lock()
	defer gaugesMu.Unlock()
	if g, ok := gauges[group]; ok {
		gaugeRegisterer.Unregister(g)
		delete(gauges, group)
	}
}

// observedCache counts hits and misses of one group
type observedCache struct {
	Cache
	group string
}

func observe(inner Cache, group string) Cache {
	registerEntriesGauge(group, inner)
	return &observedCache{Cache: inner, group: group}
}

func (o *observedCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, ok := o.Cache.Get(ctx, key)
	if ok {
		HitsTotal.WithLabelValues(o.group).Inc()
	} else {
		MissesTotal.WithLabelValues(o.group).Inc()
	}
	return value, ok
}

func (o *observedCache) Close() error {
	unregisterEntriesGauge(o.group)
	return o.Cache.Close()
}
