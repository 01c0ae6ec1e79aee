// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"time"

	"github.com/saferwall/uadetect/ulog"
)

// Config configures a Provider (§6 "External interfaces", §5
// "Background work"). withDefaults replaces the zero values of
// CacheServiceInterval, OverrideUserAgentHeaders, MatchCacheSize and
// ListCacheSize with the values DefaultConfig uses, matching the
// teacher's Options-struct pattern (compare pe.Options).
type Config struct {
	// MemoryMode selects Memory (mmap, shared across readers) over
	// Stream (one file handle per reader). Memory is the default: it
	// is what the teacher's file.go does for mmap'd PE parsing.
	MemoryMode bool

	// BinaryFilePath is the uadetect data file to open.
	BinaryFilePath string

	// AutoUpdate is carried in Config but not read by this package:
	// the background file-modification watcher runs only when a
	// caller builds one with NewWatcher and calls Start.
	AutoUpdate bool

	// LicenceKey is carried in Config but not read or validated by
	// this package.
	LicenceKey string

	// CacheServiceInterval is how often the watcher polls the data
	// file's mtime. Defaults to 30s (§5).
	CacheServiceInterval time.Duration

	// OverrideUserAgentHeaders lists the HTTP header names, in
	// priority order, that Provider.MatchHeaders consults (§4.I). The
	// default list is just "User-Agent"; a header missing from the
	// list is never consulted, and when none of the listed headers is
	// present an empty UA is matched.
	OverrideUserAgentHeaders []string

	// NodeEvaluationBudget bounds how many trie nodes a single Match
	// call may evaluate before returning a best-so-far, incomplete
	// result (§5 "Cancellation and timeouts"). 0 means unbounded.
	NodeEvaluationBudget int

	// MaxReaders caps the Pool's reader count; 0 is elastic (§4.B).
	MaxReaders int

	// MatchCacheSize sizes the per-UA Match result cache (§4.I); 0
	// selects the default of 8192, and a negative value disables the
	// cache.
	MatchCacheSize int

	// ListCacheSize sizes each cached entity list's two-generation
	// cache (§4.E); 0 or a negative value selects the default of 4096,
	// so per-list caching cannot be turned off here.
	ListCacheSize int

	// Logger receives uadetect's diagnostic output. Nil discards it.
	Logger ulog.Logger
}

const defaultCacheServiceInterval = 30 * time.Second

// DefaultConfig returns a Config with every zero-value field replaced
// by its default, the way pe.Options{} + a defaulting pass works in
// the teacher's New.
func DefaultConfig() Config {
	return Config{
		MemoryMode:           true,
		CacheServiceInterval: defaultCacheServiceInterval,
		OverrideUserAgentHeaders: []string{
			"User-Agent",
		},
		MatchCacheSize: 8192,
		ListCacheSize:  4096,
	}
}

// withDefaults fills the zero-value CacheServiceInterval (also a
// negative one), OverrideUserAgentHeaders, MatchCacheSize and
// ListCacheSize of cfg from DefaultConfig, leaving explicit caller
// values untouched. Every other field, MemoryMode included, is kept
// as given.
func (cfg Config) withDefaults() Config {
	d := DefaultConfig()
	if cfg.CacheServiceInterval <= 0 {
		cfg.CacheServiceInterval = d.CacheServiceInterval
	}
	if len(cfg.OverrideUserAgentHeaders) == 0 {
		cfg.OverrideUserAgentHeaders = d.OverrideUserAgentHeaders
	}
	if cfg.MatchCacheSize == 0 {
		cfg.MatchCacheSize = d.MatchCacheSize
	}
	if cfg.ListCacheSize == 0 {
		cfg.ListCacheSize = d.ListCacheSize
	}
	return cfg
}
