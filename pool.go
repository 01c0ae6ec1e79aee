// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"sync"

	"github.com/saferwall/uadetect/metrics"
	"github.com/saferwall/uadetect/ulog"
)

// Pool is a fixed- or elastic-capacity queue of Readers over a single
// Source (§4.B). Acquire lends a reader to the caller for the
// duration of one matcher operation; Release returns it to the queue.
type Pool struct {
	mu      sync.Mutex
	source  Source
	idle    []*Reader
	created int
	maxSize int // 0 means unbounded (elastic)

	counters *metrics.PoolCounters
	log      *ulog.Helper
}

// NewPool builds a Pool over source. maxSize <= 0 means elastic: a
// new Reader is created whenever none are idle. maxSize > 0 makes
// Acquire fail with ErrPoolExhausted once that many readers are both
// created and in use.
func NewPool(source Source, maxSize int, log ulog.Logger) *Pool {
	return &Pool{
		source:   source,
		maxSize:  maxSize,
		counters: metrics.NewPoolCounters("dataset"),
		log:      ulog.NewHelper(log),
	}
}

// Acquire returns an idle Reader, creating one if none are queued and
// creation is permitted; it fails with ErrPoolExhausted only if a
// hard cap is configured and reached.
func (p *Pool) Acquire() (*Reader, error) {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		r := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.counters.ReadersQueued.Set(float64(len(p.idle)))
		p.mu.Unlock()
		return r, nil
	}
	if p.maxSize > 0 && p.created >= p.maxSize {
		p.mu.Unlock()
		p.log.Warnf("pool exhausted: %d readers in use, cap %d", p.created, p.maxSize)
		return nil, ErrPoolExhausted
	}
	p.created++
	p.mu.Unlock()

	r, err := p.source.newReader()
	if err != nil {
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
		return nil, err
	}
	p.counters.ReadersCreated.Inc()
	return r, nil
}

// Release returns r to the pool for reuse.
func (p *Pool) Release(r *Reader) {
	p.mu.Lock()
	p.idle = append(p.idle, r)
	p.counters.ReadersQueued.Set(float64(len(p.idle)))
	p.mu.Unlock()
}

// ReadersCreated returns the total number of readers ever
// instantiated by this pool.
func (p *Pool) ReadersCreated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

// ReadersQueued returns the number of readers currently idle.
func (p *Pool) ReadersQueued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Close closes every queued reader and empties the queue. It does not
// mark the pool closed: a reader Released after this call is queued
// again without being closed, and Acquire keeps working.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, r := range p.idle {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.idle = nil
	return firstErr
}

// Counters exposes the pool's Prometheus collectors for registration
// on a host process's registry.
func (p *Pool) Counters() *metrics.PoolCounters { return p.counters }
