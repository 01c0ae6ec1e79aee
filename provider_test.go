// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func writeTestDataFile(t *testing.T) string {
	t.Helper()
	data, _ := buildTestDataset()
	path := filepath.Join(t.TempDir(), "uadetect.dat")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func openTestProvider(t *testing.T) *Provider {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BinaryFilePath = writeTestDataFile(t)
	cfg.MemoryMode = false
	p, err := OpenProvider(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Dispose()) })
	return p
}

func TestProviderMatchHitsCacheOnSecondCall(t *testing.T) {
	p := openTestProvider(t)

	m1, err := p.Match([]byte("Android"))
	require.NoError(t, err)
	require.Equal(t, MethodExact, m1.Method)

	m2, err := p.Match([]byte("Android"))
	require.NoError(t, err)
	require.Equal(t, m1.Method, m2.Method)
	require.Equal(t, m1.Signature.Offset, m2.Signature.Offset)

	// The second call must be a cache hit, not a second matcher run.
	require.Equal(t, float64(2), testutil.ToFloat64(p.counters.Requests))
	require.Equal(t, float64(1), testutil.ToFloat64(p.counters.Misses))
}

func TestProviderMatchHeadersUsesPriorityOrder(t *testing.T) {
	p := openTestProvider(t)
	p.cfg.OverrideUserAgentHeaders = []string{"X-Device-UA", "User-Agent"}

	m, err := p.MatchHeaders(map[string]string{
		"User-Agent":  "Tablet",
		"X-Device-UA": "Android",
	})
	require.NoError(t, err)
	require.Equal(t, MethodExact, m.Method)
	require.Equal(t, "100", m.DeviceId())
}

func TestProviderMatchHeadersFallsBackToDefault(t *testing.T) {
	p := openTestProvider(t)

	m, err := p.MatchHeaders(map[string]string{"User-Agent": "Android"})
	require.NoError(t, err)
	require.Equal(t, MethodExact, m.Method)
}

func TestProviderValuesWithOverrides(t *testing.T) {
	p := openTestProvider(t)

	m, err := p.Match([]byte("Android"))
	require.NoError(t, err)

	// No override: falls through to the signature's own values.
	require.Equal(t, []string{"True"}, p.Values(m, "IsMobile", nil))

	// Override takes priority without touching the underlying match.
	got := p.Values(m, "IsMobile", map[string]string{"IsMobile": "False"})
	require.Equal(t, []string{"False"}, got)
}

func TestProviderGetPropertyAndComponents(t *testing.T) {
	p := openTestProvider(t)

	_, ok := p.GetProperty("IsMobile")
	require.True(t, ok)

	components, err := p.Components()
	require.NoError(t, err)
	require.Len(t, components, 1)
}

func TestProviderDisposeRejectsFurtherMatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BinaryFilePath = writeTestDataFile(t)
	cfg.MemoryMode = false
	p, err := OpenProvider(cfg)
	require.NoError(t, err)
	require.NoError(t, p.Dispose())

	_, err = p.Match([]byte("Android"))
	require.ErrorIs(t, err, ErrDatasetDisposed)
}
