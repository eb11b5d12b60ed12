// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit provides the durable, append-only record of broker
// activity: mode changes, blocked requests, and dispatched requests.
//
// Events are written as JSON lines with size-based rotation. The log is
// an observability sink only; the broker never reads it back, so the
// persisted mode remains the only state that survives a restart.
// Sink failures are reported on stderr and never take the broker down.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultMaxFileSize is the max log size before rotation (10MB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// DefaultFileName is the audit log file name under the state directory.
const DefaultFileName = "audit.log"

// =============================================================================
// EVENT
// =============================================================================

// Event is a single audit log entry.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Success   bool              `json:"success"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// =============================================================================
// LOGGER
// =============================================================================

// Logger is a thread-safe JSON-lines audit logger with rotation. It
// implements connectivity.AuditSink.
type Logger struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	maxSize int64
	enabled bool
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithMaxSize sets the rotation threshold in bytes.
func WithMaxSize(n int64) LoggerOption {
	return func(l *Logger) {
		l.maxSize = n
	}
}

// NewLogger opens (or creates) the audit log at path. An empty path uses
// ~/.lumen/audit.log.
func NewLogger(path string, opts ...LoggerOption) (*Logger, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".lumen", DefaultFileName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	l := &Logger{
		path:    path,
		file:    file,
		maxSize: DefaultMaxFileSize,
		enabled: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Record implements connectivity.AuditSink. Failures are reported on
// stderr rather than returned: audit must never abort a dispatch.
func (l *Logger) Record(eventType string, success bool, metadata map[string]string) {
	if err := l.Log(Event{
		Timestamp: time.Now(),
		EventType: eventType,
		Success:   success,
		Metadata:  metadata,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "AUDIT ERROR: failed to log %s: %v\n", eventType, err)
	}
}

// Log writes one event as a JSON line, rotating first if needed.
func (l *Logger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || l.file == nil {
		return nil
	}

	if err := l.rotateIfNeededLocked(); err != nil {
		return fmt.Errorf("audit rotation: %w", err)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if _, err := fmt.Fprintln(l.file, string(line)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	return nil
}

// rotateIfNeededLocked renames the log to <path>.1 when it exceeds the
// size limit, replacing any previous rotation. Caller holds l.mu.
func (l *Logger) rotateIfNeededLocked() error {
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < l.maxSize {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return err
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		l.file = nil
		return err
	}
	l.file = file
	return nil
}

// SetEnabled toggles logging without closing the file.
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// IsEnabled reports whether logging is active.
func (l *Logger) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled && l.file != nil
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.path
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// =============================================================================
// READING
// =============================================================================

// ReadAll parses every event in the current log file, skipping corrupt
// lines. Intended for the CLI audit view and tests.
func ReadAll(path string) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var events []Event
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
