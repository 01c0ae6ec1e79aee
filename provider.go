// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/saferwall/uadetect/metrics"
	"github.com/saferwall/uadetect/ulog"
)

// Provider is the top-level entry point (§4.I): it owns a Dataset and
// a Matcher, fronted by an LRU cache keyed by a fingerprint of the UA
// bytes so repeated lookups for the same UA skip the matcher
// entirely.
type Provider struct {
	cfg     Config
	ds      *Dataset
	matcher *Matcher
	source  Source

	cache    *lru.Cache[uint64, *Match]
	counters *metrics.CacheCounters
	log      *ulog.Helper
}

// OpenProvider opens cfg.BinaryFilePath and builds a ready Provider
// (§4.I, §4.J). Zero-value Config fields are defaulted as in
// DefaultConfig.
func OpenProvider(cfg Config) (*Provider, error) {
	cfg = cfg.withDefaults()

	mode := Stream
	if cfg.MemoryMode {
		mode = Memory
	}
	source, err := NewFileSource(cfg.BinaryFilePath, mode, false)
	if err != nil {
		return nil, err
	}

	ds, err := Open(source, OpenOptions{
		Mode:       mode,
		MaxReaders: cfg.MaxReaders,
		CacheSize:  cfg.ListCacheSize,
		Logger:     cfg.Logger,
	})
	if err != nil {
		source.Close()
		return nil, err
	}

	p := &Provider{
		cfg:      cfg,
		ds:       ds,
		matcher:  NewMatcher(ds, cfg.NodeEvaluationBudget),
		source:   source,
		counters: metrics.NewCacheCounters("match"),
		log:      ulog.NewHelper(cfg.Logger),
	}

	if cfg.MatchCacheSize > 0 {
		cache, err := lru.New[uint64, *Match](cfg.MatchCacheSize)
		if err != nil {
			ds.Close()
			return nil, err
		}
		p.cache = cache
	}
	return p, nil
}

// newFromDataset builds a Provider over an already-open Dataset,
// used by the background watcher to publish a freshly-loaded
// generation without re-parsing Config (§5 "Background work").
func newFromDataset(cfg Config, source Source, ds *Dataset) *Provider {
	p := &Provider{
		cfg:      cfg,
		ds:       ds,
		matcher:  NewMatcher(ds, cfg.NodeEvaluationBudget),
		source:   source,
		counters: metrics.NewCacheCounters("match"),
		log:      ulog.NewHelper(cfg.Logger),
	}
	if cfg.MatchCacheSize > 0 {
		if cache, err := lru.New[uint64, *Match](cfg.MatchCacheSize); err == nil {
			p.cache = cache
		}
	}
	return p
}

// Match runs the five-strategy matcher against userAgent, probing the
// LRU result cache first and cloning on a hit (§4.I).
func (p *Provider) Match(userAgent []byte) (*Match, error) {
	if err := p.ds.checkUsable(); err != nil {
		return nil, err
	}

	fingerprint := xxhash.Sum64(userAgent)

	if p.cache != nil {
		p.counters.Requests.Inc()
		if m, ok := p.cache.Get(fingerprint); ok {
			clone := *m
			return &clone, nil
		}
		p.counters.Misses.Inc()
	}

	p.ds.acquireRef()
	defer p.ds.releaseRef()

	m, err := p.matcher.Match(userAgent)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		p.cache.Add(fingerprint, m)
	}
	return m, nil
}

// MatchHeaders picks a UA out of headers using cfg.OverrideUserAgentHeaders
// in priority order and matches it (§4.I "Match(headers) -> picks the
// UA header... of a configurable list of override headers").
func (p *Provider) MatchHeaders(headers map[string]string) (*Match, error) {
	for _, name := range p.cfg.OverrideUserAgentHeaders {
		if ua, ok := headers[name]; ok {
			return p.Match([]byte(ua))
		}
	}
	return p.Match(nil)
}

// Values resolves propertyName for m, consulting overrides first
// (§9 supplemented feature: profile-override map). Applying overrides
// only touches the properties the caller explicitly names; everything
// else still resolves from m.Signature.
func (p *Provider) Values(m *Match, propertyName string, overrides map[string]string) []string {
	if len(overrides) > 0 {
		if v, ok := overrides[propertyName]; ok {
			return []string{v}
		}
	}
	return m.Values(propertyName)
}

// MatchWithOverrides matches headers and returns both the Match and a
// resolver bound to the supplied override map, so callers don't have
// to thread overrides through every Values call by hand.
func (p *Provider) MatchWithOverrides(headers, overrides map[string]string) (*Match, func(propertyName string) []string, error) {
	m, err := p.MatchHeaders(headers)
	if err != nil {
		return nil, nil, err
	}
	return m, func(propertyName string) []string { return p.Values(m, propertyName, overrides) }, nil
}

// GetProperty looks up a Property by name (§4.I), returning false
// rather than an error when absent.
func (p *Provider) GetProperty(name string) (*Property, bool) { return p.ds.Property(name) }

// Properties returns every Property, optionally filtered to a named
// Map/tier (§9 supplemented feature "Map/tier filtering").
func (p *Provider) Properties(tier string) ([]*Property, error) { return p.ds.Properties(tier) }

// Components returns every Component in the dataset.
func (p *Provider) Components() ([]*Component, error) { return p.ds.Components() }

// Dataset exposes the Provider's underlying Dataset, e.g. for the
// background watcher to swap out.
func (p *Provider) Dataset() *Dataset { return p.ds }

// Dispose closes the underlying Dataset and its Source (§4.J "On
// close: drain the pool, close/delete the source, clear caches").
func (p *Provider) Dispose() error {
	if p.cache != nil {
		p.cache.Purge()
	}
	return p.ds.Close()
}
