// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// watcher.go - fsnotify watcher for the mode store file.
//
// The store is written by atomic rename, and other tools (or the user)
// may edit it while the broker is running. The watcher observes the
// store's directory, debounces bursts of events, and invokes a callback
// so the owner can re-read the persisted mode.

package modestore

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the default settle time after a file event before
// the callback fires.
const DefaultDebounce = 200 * time.Millisecond

// Watcher observes the store file for external changes.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func()

	mu      sync.Mutex
	pending bool
	last    time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates a watcher over the store. onChange runs on the
// watcher goroutine after the file settles; it should be quick (a mode
// reload is). A zero debounce uses DefaultDebounce.
func NewWatcher(store *Store, debounce time.Duration, onChange func()) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		store:    store,
		watcher:  fsw,
		debounce: debounce,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching. The store's directory is watched, not the file
// itself: atomic saves replace the file via rename, which would break a
// direct file watch.
func (w *Watcher) Watch() error {
	dir := filepath.Dir(w.store.Path())
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.processEvents()
	go w.processPending()
	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

// processEvents marks the store as pending whenever its path is touched.
func (w *Watcher) processEvents() {
	target := filepath.Clean(w.store.Path())
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = true
			w.last = time.Now()
			w.mu.Unlock()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are not actionable here; the next poll of
			// the store still reads a consistent value.
		}
	}
}

// processPending fires the callback once events have settled.
func (w *Watcher) processPending() {
	period := w.debounce / 2
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			fire := w.pending && time.Since(w.last) >= w.debounce
			if fire {
				w.pending = false
			}
			w.mu.Unlock()
			if fire && w.onChange != nil {
				w.onChange()
			}
		}
	}
}
