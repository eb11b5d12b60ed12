// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package modestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/connectivity/internal/connectivity"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "mode.toml"))
	require.NoError(t, err)
	return s
}

func TestStore_MissingFileIsOfflineOnly(t *testing.T) {
	s := tempStore(t)

	mode, err := s.Load()
	require.NoError(t, err, "a missing store is the normal first run, not an error")
	require.Equal(t, connectivity.ModeOfflineOnly, mode)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := tempStore(t)

	for _, mode := range []connectivity.Mode{
		connectivity.ModeConnected,
		connectivity.ModeAssisted,
		connectivity.ModeOfflineOnly,
	} {
		require.NoError(t, s.Save(mode))

		got, err := s.Load()
		require.NoError(t, err)
		require.Equal(t, mode, got)
	}
}

func TestStore_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state", "mode.toml")
	s, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Save(connectivity.ModeAssisted))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStore_CorruptTOMLFailsSafe(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("mode = [not toml"), 0600))

	mode, err := s.Load()
	require.Error(t, err)
	require.Equal(t, connectivity.ModeOfflineOnly, mode)
}

func TestStore_UnknownModeFailsSafe(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`mode = "turbo"`+"\n"), 0600))

	mode, err := s.Load()
	require.Error(t, err)
	require.Equal(t, connectivity.ModeOfflineOnly, mode)
}

func TestStore_SurvivesManagerReconstruction(t *testing.T) {
	s := tempStore(t)
	m := connectivity.NewManager(s, nil)
	require.NoError(t, m.SetMode(connectivity.ModeConnected))

	rebuilt := connectivity.NewManager(s, nil)
	require.Equal(t, connectivity.ModeConnected, rebuilt.Mode())
	require.Equal(t, connectivity.StatusIdle, rebuilt.Status())
}
