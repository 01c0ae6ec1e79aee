// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.True(t, cfg.MemoryMode)
	require.Equal(t, defaultCacheServiceInterval, cfg.CacheServiceInterval)
	require.Equal(t, []string{"User-Agent"}, cfg.OverrideUserAgentHeaders)
}

func TestConfigWithDefaultsLeavesExplicitValuesAlone(t *testing.T) {
	cfg := Config{
		CacheServiceInterval:     5 * time.Second,
		OverrideUserAgentHeaders: []string{"X-Custom-UA"},
		MatchCacheSize:           10,
		ListCacheSize:            20,
	}
	got := cfg.withDefaults()
	require.Equal(t, 5*time.Second, got.CacheServiceInterval)
	require.Equal(t, []string{"X-Custom-UA"}, got.OverrideUserAgentHeaders)
	require.Equal(t, 10, got.MatchCacheSize)
	require.Equal(t, 20, got.ListCacheSize)
}

func TestConfigWithDefaultsFillsZeroValues(t *testing.T) {
	got := Config{}.withDefaults()
	d := DefaultConfig()
	require.Equal(t, d.CacheServiceInterval, got.CacheServiceInterval)
	require.Equal(t, d.OverrideUserAgentHeaders, got.OverrideUserAgentHeaders)
	require.Equal(t, d.MatchCacheSize, got.MatchCacheSize)
	require.Equal(t, d.ListCacheSize, got.ListCacheSize)
}
