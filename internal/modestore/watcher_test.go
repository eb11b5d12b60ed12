// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package modestore

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/connectivity/internal/connectivity"
)

func TestWatcher_FiresAfterExternalSave(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(connectivity.ModeOfflineOnly))

	var fired atomic.Int32
	w, err := NewWatcher(s, 20*time.Millisecond, func() {
		fired.Add(1)
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch())

	// Simulate another process committing a new mode.
	require.NoError(t, s.Save(connectivity.ModeConnected))

	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond, "watcher should fire after the store settles")
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(connectivity.ModeOfflineOnly))

	var fired atomic.Int32
	w, err := NewWatcher(s, 100*time.Millisecond, func() {
		fired.Add(1)
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch())

	// A burst of rapid saves should collapse into one callback.
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(connectivity.ModeAssisted))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	require.LessOrEqual(t, fired.Load(), int32(2), "burst should debounce to at most a couple of callbacks")
}

func TestWatcher_IgnoresOtherFilesInDirectory(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(connectivity.ModeOfflineOnly))

	var fired atomic.Int32
	w, err := NewWatcher(s, 20*time.Millisecond, func() {
		fired.Add(1)
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch())

	other := filepath.Join(filepath.Dir(s.Path()), "unrelated.txt")
	require.NoError(t, os.WriteFile(other, []byte("noise"), 0600))

	time.Sleep(100 * time.Millisecond)
	require.Zero(t, fired.Load(), "writes to unrelated files must not fire the callback")
}

func TestWatcher_DrivesManagerReload(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(connectivity.ModeOfflineOnly))

	m := connectivity.NewManager(s, nil)
	w, err := NewWatcher(s, 20*time.Millisecond, func() {
		_ = m.Reload()
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch())

	require.NoError(t, s.Save(connectivity.ModeConnected))

	require.Eventually(t, func() bool {
		return m.Mode() == connectivity.ModeConnected
	}, 2*time.Second, 10*time.Millisecond, "an external mode edit should reach the broker")
}

func TestWatcher_CloseStops(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(connectivity.ModeOfflineOnly))

	var fired atomic.Int32
	w, err := NewWatcher(s, 20*time.Millisecond, func() {
		fired.Add(1)
	})
	require.NoError(t, err)
	require.NoError(t, w.Watch())
	require.NoError(t, w.Close())

	require.NoError(t, s.Save(connectivity.ModeConnected))
	time.Sleep(100 * time.Millisecond)
	require.Zero(t, fired.Load(), "a closed watcher must not fire")
}
