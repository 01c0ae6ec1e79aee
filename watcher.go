// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/saferwall/uadetect/ulog"
)

// Watcher polls a data file's mtime (and also checks it on fsnotify
// events when the file's directory is watchable) and atomically swaps the active
// Provider when it changes (§5 "Background work"). The superseded
// generation is disposed only once its in-flight matches have
// drained.
type Watcher struct {
	cfg  Config
	path string
	log  *ulog.Helper

	current atomic.Pointer[Provider]
	lastMod atomic.Int64 // unix nanos of the data file's mtime at last (re)load

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher opens cfg.BinaryFilePath once and returns a Watcher
// ready to Start background polling.
func NewWatcher(cfg Config) (*Watcher, error) {
	cfg = cfg.withDefaults()

	p, err := OpenProvider(cfg)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(cfg.BinaryFilePath)
	if err != nil {
		p.Dispose()
		return nil, dataFileIOf(err, "stat %s", cfg.BinaryFilePath)
	}

	w := &Watcher{cfg: cfg, path: cfg.BinaryFilePath, log: ulog.NewHelper(cfg.Logger)}
	w.current.Store(p)
	w.lastMod.Store(info.ModTime().UnixNano())
	return w, nil
}

// Current returns the Provider presently in effect.
func (w *Watcher) Current() *Provider { return w.current.Load() }

// Start launches the background poll loop. It returns immediately;
// cancel via ctx or Stop. Config.AutoUpdate is not consulted: the
// loop runs whenever Start is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(ctx)
}

// Stop cancels the poll loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.cfg.CacheServiceInterval)
	defer ticker.Stop()

	fw, err := fsnotify.NewWatcher()
	var events chan fsnotify.Event
	if err != nil {
		w.log.Warnf("fsnotify unavailable, falling back to interval-only polling: %v", err)
	} else {
		defer fw.Close()
		if err := fw.Add(filepath.Dir(w.path)); err != nil {
			w.log.Warnf("fsnotify watch %s: %v", filepath.Dir(w.path), err)
		} else {
			events = make(chan fsnotify.Event)
			go func() {
				for ev := range fw.Events {
					if filepath.Clean(ev.Name) == filepath.Clean(w.path) {
						events <- ev
					}
				}
			}()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkAndReload()
		case <-events:
			w.checkAndReload()
		}
	}
}

// checkAndReload stats the data file and, if its mtime has advanced
// since the last (re)load, builds and publishes a fresh generation.
func (w *Watcher) checkAndReload() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Warnf("stat %s: %v", w.path, err)
		return
	}
	mtime := info.ModTime().UnixNano()
	if mtime <= w.lastMod.Load() {
		return
	}

	if err := w.reload(); err != nil {
		w.log.Errorf("reload %s: %v", w.path, err)
		return
	}
	w.lastMod.Store(mtime)
}

// reload builds a new Dataset off a private working copy of the data
// file, publishes it, and schedules the superseded generation for
// disposal once its reference count drains to zero (§5 scenario: "a
// new dataset is built off a copied working file, published, and the
// old one is disposed after its in-flight matches drain").
func (w *Watcher) reload() error {
	workingPath, err := copyToWorkingFile(w.path)
	if err != nil {
		return err
	}

	mode := Stream
	if w.cfg.MemoryMode {
		mode = Memory
	}
	source, err := NewFileSource(workingPath, mode, true)
	if err != nil {
		os.Remove(workingPath)
		return err
	}

	ds, err := Open(source, OpenOptions{
		Mode:       mode,
		MaxReaders: w.cfg.MaxReaders,
		CacheSize:  w.cfg.ListCacheSize,
		Logger:     w.cfg.Logger,
	})
	if err != nil {
		source.Close()
		return err
	}

	next := newFromDataset(w.cfg, source, ds)
	prev := w.current.Swap(next)
	if prev != nil {
		go disposeWhenDrained(prev, w.log)
	}
	return nil
}

// disposeWhenDrained polls prev's in-flight Match reference count and
// disposes it once no caller still holds a reference.
func disposeWhenDrained(prev *Provider, log *ulog.Helper) {
	for prev.Dataset().RefCount() > 0 {
		time.Sleep(50 * time.Millisecond)
	}
	if err := prev.Dispose(); err != nil {
		log.Warnf("dispose superseded dataset: %v", err)
	}
}

// copyToWorkingFile duplicates path into a sibling ".loading" file so
// the new Dataset reads a stable snapshot even if path is rewritten
// again mid-load.
func copyToWorkingFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", dataFileIOf(err, "open %s", path)
	}
	defer src.Close()

	workingPath := fmt.Sprintf("%s.%d.loading", path, time.Now().UnixNano())
	dst, err := os.Create(workingPath)
	if err != nil {
		return "", dataFileIOf(err, "create %s", workingPath)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(workingPath)
		return "", dataFileIOf(err, "copy %s to %s", path, workingPath)
	}
	if err := dst.Close(); err != nil {
		os.Remove(workingPath)
		return "", dataFileIOf(err, "close %s", workingPath)
	}
	return workingPath, nil
}
