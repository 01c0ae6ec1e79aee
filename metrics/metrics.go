// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package metrics exposes the introspection counters named in the
// spec for the record pool (ReadersCreated, ReadersQueued) and the
// two-generation cache (requests, misses, switches) as Prometheus
// collectors, so a host process can register them on its own
// registry instead of polling plain int64 fields.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// PoolCounters backs a single Pool's introspection counters.
type PoolCounters struct {
	ReadersCreated prometheus.Counter
	ReadersQueued  prometheus.Gauge
}

// NewPoolCounters builds a PoolCounters labelled by name (typically
// the dataset's source description).
func NewPoolCounters(name string) *PoolCounters {
	return &PoolCounters{
		ReadersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "uadetect_pool_readers_created_total",
			Help:        "Total readers instantiated by a record pool.",
			ConstLabels: prometheus.Labels{"pool": name},
		}),
		ReadersQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "uadetect_pool_readers_queued",
			Help:        "Readers currently idle in a record pool.",
			ConstLabels: prometheus.Labels{"pool": name},
		}),
	}
}

// Collectors returns every metric so callers can register them in a
// batch: registry.MustRegister(counters.Collectors()...).
func (p *PoolCounters) Collectors() []prometheus.Collector {
	return []prometheus.Collector{p.ReadersCreated, p.ReadersQueued}
}

// CacheCounters backs a single two-generation cache's introspection
// counters (§4.E: requests, misses, switches).
type CacheCounters struct {
	Requests prometheus.Counter
	Misses   prometheus.Counter
	Switches prometheus.Counter
}

// NewCacheCounters builds a CacheCounters labelled by the cached
// list's name (e.g. "nodes", "signatures", "profiles").
func NewCacheCounters(list string) *CacheCounters {
	return &CacheCounters{
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "uadetect_cache_requests_total",
			Help:        "Lookups served by a two-generation cache.",
			ConstLabels: prometheus.Labels{"list": list},
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "uadetect_cache_misses_total",
			Help:        "Lookups that missed both cache generations.",
			ConstLabels: prometheus.Labels{"list": list},
		}),
		Switches: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "uadetect_cache_switches_total",
			Help:        "Generation-switch events.",
			ConstLabels: prometheus.Labels{"list": list},
		}),
	}
}

// Collectors returns every metric so callers can register them in a
// batch.
func (c *CacheCounters) Collectors() []prometheus.Collector {
	return []prometheus.Collector{c.Requests, c.Misses, c.Switches}
}
