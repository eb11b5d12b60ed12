// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package modestore persists the connectivity mode across process
// restarts.
//
// The mode is the only broker state that survives a restart. It lives in
// a small TOML file (default ~/.lumen/mode.toml) written atomically on
// every change. Loading fails safe: a missing, unreadable, or corrupt
// file resolves to offline-only rather than propagating an error up into
// the broker.
package modestore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lumenlabs/connectivity/internal/connectivity"
	"github.com/lumenlabs/connectivity/internal/util"
)

// DefaultFileName is the mode store file name under the state directory.
const DefaultFileName = "mode.toml"

// fileFormat is the on-disk TOML shape of the store.
type fileFormat struct {
	Mode      string    `toml:"mode"`
	UpdatedAt time.Time `toml:"updated_at"`
}

// Store reads and writes the persisted mode. It implements
// connectivity.ModeStore.
type Store struct {
	path string
}

// NewStore creates a store at the given file path. An empty path uses
// DefaultPath.
func NewStore(path string) (*Store, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return &Store{path: path}, nil
}

// DefaultPath returns ~/.lumen/mode.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".lumen", DefaultFileName), nil
}

// Path returns the store's file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted mode.
//
// Every failure path returns connectivity.ModeOfflineOnly as the mode:
// missing file, unreadable file, malformed TOML, unknown mode value. The
// error is returned alongside for visibility (nil for a simply missing
// file, which is the normal first-run case), but callers never need it
// to stay safe.
func (s *Store) Load() (connectivity.Mode, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return connectivity.ModeOfflineOnly, nil
		}
		return connectivity.ModeOfflineOnly, fmt.Errorf("read mode store: %w", err)
	}

	var ff fileFormat
	if err := toml.Unmarshal(data, &ff); err != nil {
		return connectivity.ModeOfflineOnly, fmt.Errorf("parse mode store: %w", err)
	}

	mode, ok := connectivity.ParseMode(ff.Mode)
	if !ok {
		return connectivity.ModeOfflineOnly, fmt.Errorf("mode store holds unknown mode %q", ff.Mode)
	}
	return mode, nil
}

// Save writes the mode atomically. The parent directory is created if
// needed; the file is private to the user.
func (s *Store) Save(mode connectivity.Mode) error {
	ff := fileFormat{
		Mode:      mode.String(),
		UpdatedAt: time.Now().UTC(),
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(ff); err != nil {
		return fmt.Errorf("encode mode store: %w", err)
	}

	if err := util.AtomicWriteFile(s.path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("write mode store: %w", err)
	}
	return nil
}
