// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	data, _ := buildTestDataset()
	path := filepath.Join(t.TempDir(), "uadetect.dat")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg := DefaultConfig()
	cfg.BinaryFilePath = path
	cfg.MemoryMode = false

	w, err := NewWatcher(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })
	return w, path
}

func TestNewWatcherLoadsInitialProvider(t *testing.T) {
	w, _ := newTestWatcher(t)
	require.NotNil(t, w.Current())

	m, err := w.Current().Match([]byte("Android"))
	require.NoError(t, err)
	require.Equal(t, MethodExact, m.Method)
}

func TestCheckAndReloadSkipsWhenMtimeUnchanged(t *testing.T) {
	w, _ := newTestWatcher(t)
	before := w.Current()

	w.checkAndReload()
	require.Same(t, before, w.Current())
}

func TestCheckAndReloadSwapsProviderOnMtimeAdvance(t *testing.T) {
	w, path := newTestWatcher(t)
	before := w.Current()

	data, _ := buildTestDataset()
	require.NoError(t, os.WriteFile(path, data, 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	w.checkAndReload()
	after := w.Current()
	require.NotSame(t, before, after)

	m, err := after.Match([]byte("Android"))
	require.NoError(t, err)
	require.Equal(t, MethodExact, m.Method)
}

func TestDisposeWhenDrainedWaitsForRefCountZero(t *testing.T) {
	w, _ := newTestWatcher(t)
	prev := w.Current()

	prev.Dataset().acquireRef()
	done := make(chan struct{})
	go func() {
		disposeWhenDrained(prev, w.log)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("disposeWhenDrained returned before ref count drained")
	case <-time.After(100 * time.Millisecond):
	}

	prev.Dataset().releaseRef()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("disposeWhenDrained did not return after ref count drained")
	}
}

func TestStartAndStopRunsPollLoop(t *testing.T) {
	w, _ := newTestWatcher(t)
	w.cfg.CacheServiceInterval = 10 * time.Millisecond

	w.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	w.Stop()
}
