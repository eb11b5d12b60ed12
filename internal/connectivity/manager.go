// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// manager.go - The connectivity Manager: the single mediation point every
// outbound network attempt passes through.
//
// The Manager evaluates the trust policy, drives the mode/status state
// machine, invokes the Gateway, appends to the history ledger, and emits
// subscriber notifications. One mutex guards all shared state (mode,
// status, in-flight count, allowlist, ledger, subscribers); the gateway
// call itself happens outside the lock.

package connectivity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("connectivity manager is closed")

// =============================================================================
// MANAGER
// =============================================================================

// Manager is the policy-enforcing network gateway broker. Construct one
// per application via NewManager and pass the handle to consumers; there
// is deliberately no package-level singleton.
type Manager struct {
	mu       sync.Mutex
	mode     Mode
	status   Status
	inflight int
	closed   bool
	allow    allowlist
	history  ledger
	subs     []*subscription

	// counters for Stats
	dispatched uint64
	blocked    uint64

	store   ModeStore
	gateway Gateway
	audit   AuditSink
	limiter *rate.Limiter
}

// Option configures a Manager.
type Option func(*Manager)

// WithAuditSink attaches a durable audit sink for mode changes and
// request outcomes.
func WithAuditSink(sink AuditSink) Option {
	return func(m *Manager) {
		m.audit = sink
	}
}

// WithRateLimit throttles dispatches to eventsPerSec with the given
// burst. The limiter applies only after policy allows a request; a wait
// aborted by context cancellation is a cancellation, not a policy block.
func WithRateLimit(eventsPerSec float64, burst int) Option {
	return func(m *Manager) {
		m.limiter = rate.NewLimiter(rate.Limit(eventsPerSec), burst)
	}
}

// WithAllowlist seeds the endpoint allowlist. Duplicates are collapsed.
func WithAllowlist(prefixes []string) Option {
	return func(m *Manager) {
		for _, p := range prefixes {
			m.allow.add(p)
		}
	}
}

// NewManager constructs a Manager over a mode store and a gateway.
//
// The persisted mode is read through at construction. A load error or an
// invalid stored value fails safe to ModeOfflineOnly; it never fails
// open to ModeConnected.
func NewManager(store ModeStore, gw Gateway, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		gateway: gw,
	}
	for _, opt := range opts {
		opt(m)
	}

	mode, err := store.Load()
	if err != nil || !mode.Valid() {
		mode = ModeOfflineOnly
	}
	m.mode = mode
	m.status = deriveStatus(mode, 0)

	return m
}

// =============================================================================
// QUERIES
// =============================================================================

// Mode returns the current trust policy.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Status returns the current derived activity status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsOnline reports whether any dispatch could possibly be allowed,
// i.e. the mode is not offline-only.
func (m *Manager) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode != ModeOfflineOnly
}

// =============================================================================
// MODE TRANSITIONS
// =============================================================================

// SetMode stores the new mode, persists it, recomputes status, and
// notifies subscribers with (old, new).
//
// The in-memory change always takes effect; a persistence failure is
// returned so the caller can surface it, but the broker keeps running on
// the new mode. A mode change binds every evaluation that begins after
// SetMode returns; requests already past policy evaluation are not
// retroactively blocked.
func (m *Manager) SetMode(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %q", mode)
	}
	return m.applyMode(mode, true, EventModeChanged)
}

// GoOfflineNow is the kill switch: it forces ModeOfflineOnly and
// StatusOffline immediately and synchronously. It blocks every dispatch
// that begins afterwards but does not abort gateway calls already
// dispatched; those complete (and are ledgered) while status stays
// offline.
func (m *Manager) GoOfflineNow() error {
	return m.applyMode(ModeOfflineOnly, true, EventOfflineSwitch)
}

// Reload re-reads the mode store and applies the persisted value as a
// mode change without writing the store back. It is the hook for the
// store watcher when the file is edited outside this process. Load
// failures fail safe to offline-only.
func (m *Manager) Reload() error {
	mode, err := m.store.Load()
	if err != nil || !mode.Valid() {
		mode = ModeOfflineOnly
	}
	applyErr := m.applyMode(mode, false, EventModeChanged)
	if err != nil {
		return fmt.Errorf("mode store reload: %w", err)
	}
	return applyErr
}

// applyMode commits a mode change, optionally persisting it.
func (m *Manager) applyMode(mode Mode, persist bool, auditEvent string) error {
	m.mu.Lock()
	old := m.mode
	m.mode = mode
	var events []event
	if old != mode {
		events = append(events, modeChangedEvent(old, mode))
	}
	events = append(events, m.recomputeStatusLocked()...)
	subs := m.snapshotSubsLocked()

	// The save happens under the lock: concurrent mode changes must not
	// interleave their writes, or the store could end up holding the
	// loser of the in-memory race and a restart would resurrect a mode
	// the user already left. Store writes are a small atomic file
	// replace, so holding the lock across one is fine.
	var saveErr error
	if persist {
		if err := m.store.Save(mode); err != nil {
			saveErr = fmt.Errorf("persist mode %s: %w", mode, err)
		}
	}
	m.mu.Unlock()

	m.record(auditEvent, saveErr == nil, map[string]string{
		"old_mode": old.String(),
		"new_mode": mode.String(),
	})
	deliver(subs, events)
	return saveErr
}

// recomputeStatusLocked rederives status from mode and the in-flight
// count, returning a status-changed event when it transitions. Caller
// holds m.mu.
func (m *Manager) recomputeStatusLocked() []event {
	next := deriveStatus(m.mode, m.inflight)
	if next == m.status {
		return nil
	}
	m.status = next
	return []event{statusChangedEvent(next)}
}

// =============================================================================
// ALLOWLIST
// =============================================================================

// Allow adds an endpoint prefix to the allowlist. Idempotent.
func (m *Manager) Allow(endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allow.add(endpoint)
}

// Deny removes an endpoint prefix from the allowlist. Idempotent.
func (m *Manager) Deny(endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allow.remove(endpoint)
}

// ListAllowed returns a snapshot copy of the allowlist in insertion
// order, never a live handle.
func (m *Manager) ListAllowed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allow.snapshot()
}

// =============================================================================
// POLICY EVALUATION
// =============================================================================

// CheckAllowed evaluates the trust policy for a request without
// dispatching it. The evaluation is pure: no status change, no ledger
// entry, no notification.
func (m *Manager) CheckAllowed(req Request) Decision {
	m.mu.Lock()
	mode := m.mode
	matched := m.allow.matches(req.Endpoint)
	m.mu.Unlock()
	return evaluate(mode, matched, req)
}

// =============================================================================
// DISPATCH
// =============================================================================

// Dispatch runs a request through policy and, if allowed, through the
// gateway.
//
// Outcomes:
//   - Policy block: (nil, *BlockedError). Matchable via
//     errors.Is(err, ErrBlocked). A request-blocked notification fires;
//     nothing is ledgered and the gateway is never called.
//   - Cancellation: (nil, ctx.Err()). Nothing is ledgered.
//   - Completion: (&resp, nil). Transport failures are inside resp
//     (Success=false); the attempt is ledgered either way and a
//     request-made notification fires.
func (m *Manager) Dispatch(ctx context.Context, req Request) (*Response, error) {
	// Step 1: intent gate, before any policy evaluation.
	if !hasIntent(req) {
		d := missingIntent(req)
		m.noteBlocked(req, d)
		return nil, d.blockedError()
	}

	// Step 2-4: evaluate policy and enter the in-flight section under
	// one lock, so a concurrent mode change cannot slip between them.
	d, subs, events, err := m.admit(req)
	if err != nil {
		return nil, err
	}
	deliver(subs, events)
	if !d.Allowed {
		return nil, d.blockedError()
	}

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			m.settle(nil)
			return nil, err
		}
	}

	resp := m.send(ctx, req)

	// A cancellation that raced the gateway response still counts as
	// canceled: no ledger entry for this attempt.
	if err := ctx.Err(); err != nil {
		m.settle(nil)
		return nil, err
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Request:   req,
		Response:  resp,
		Timestamp: time.Now(),
	}
	m.settle(&entry)
	return &resp, nil
}

// admit evaluates policy and, when allowed, increments the in-flight
// counter and raises status to active. A closed manager admits nothing.
func (m *Manager) admit(req Request) (Decision, []*subscription, []event, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Decision{}, nil, nil, ErrClosed
	}
	d := evaluate(m.mode, m.allow.matches(req.Endpoint), req)
	if !d.Allowed {
		m.blocked++
		subs := m.snapshotSubsLocked()
		m.mu.Unlock()
		m.recordBlocked(req, d)
		return d, subs, []event{requestBlockedEvent(req, d)}, nil
	}
	m.inflight++
	events := m.recomputeStatusLocked()
	subs := m.snapshotSubsLocked()
	m.mu.Unlock()
	return d, subs, events, nil
}

// settle leaves the in-flight section. A non-nil entry records a
// completed dispatch; nil means the attempt was canceled and must not be
// ledgered. Status returns to idle when the counter reaches zero, unless
// the mode has since become offline-only, in which case it stays offline.
func (m *Manager) settle(entry *Entry) {
	m.mu.Lock()
	m.inflight--
	var events []event
	if entry != nil {
		m.history.append(*entry)
		m.dispatched++
		events = append(events, requestMadeEvent(*entry))
	}
	events = append(events, m.recomputeStatusLocked()...)
	subs := m.snapshotSubsLocked()
	m.mu.Unlock()

	if entry != nil {
		m.record(EventRequestDispatched, entry.Response.Success, map[string]string{
			"request_id":  entry.Request.ID,
			"endpoint":    entry.Request.Endpoint,
			"intent":      entry.Request.Intent,
			"status_code": strconv.Itoa(entry.Response.StatusCode),
			"duration_ms": strconv.FormatInt(entry.Response.Duration.Milliseconds(), 10),
		})
	}
	deliver(subs, events)
}

// send invokes the gateway outside the lock. A gateway that panics is
// outside its documented contract; the panic is converted into a failed
// response rather than escaping Dispatch.
func (m *Manager) send(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			resp = Response{
				Success:  false,
				Err:      fmt.Sprintf("gateway panic: %v", r),
				Duration: time.Since(start),
			}
		}
	}()
	return m.gateway.Send(ctx, req)
}

// noteBlocked records and notifies a block that happened before the
// in-flight section (missing intent).
func (m *Manager) noteBlocked(req Request, d Decision) {
	m.mu.Lock()
	m.blocked++
	subs := m.snapshotSubsLocked()
	m.mu.Unlock()
	m.recordBlocked(req, d)
	deliver(subs, []event{requestBlockedEvent(req, d)})
}

// recordBlocked writes a block to the audit sink.
func (m *Manager) recordBlocked(req Request, d Decision) {
	m.record(EventRequestBlocked, false, map[string]string{
		"request_id": req.ID,
		"endpoint":   req.Endpoint,
		"intent":     req.Intent,
		"tag":        string(d.Tag),
		"reason":     d.Reason,
	})
}

// record writes to the audit sink when one is attached.
func (m *Manager) record(eventType string, success bool, metadata map[string]string) {
	if m.audit == nil {
		return
	}
	m.audit.Record(eventType, success, metadata)
}

// =============================================================================
// HISTORY LEDGER
// =============================================================================

// History returns a snapshot of the full ledger in insertion order.
func (m *Manager) History() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.history()
}

// Recent returns the last n ledger entries in insertion order; all of
// them if fewer than n exist.
func (m *Manager) Recent(n int) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.recent(n)
}

// Clear empties the ledger. Mode and allowlist are untouched.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history.clear()
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers a subscriber for future events and returns its
// unsubscribe function. Events that fired before Subscribe are not
// replayed.
func (m *Manager) Subscribe(s Subscriber) func() {
	sub := &subscription{sub: s}
	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, existing := range m.subs {
			if existing == sub {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// snapshotSubsLocked copies the subscriber list. Caller holds m.mu.
func (m *Manager) snapshotSubsLocked() []*subscription {
	subs := make([]*subscription, len(m.subs))
	copy(subs, m.subs)
	return subs
}

// =============================================================================
// SHUTDOWN
// =============================================================================

// Close shuts the broker down: every Dispatch that begins afterwards
// returns ErrClosed, subscribers are dropped, and an attached audit sink
// that implements io.Closer is closed. Queries and mode operations keep
// working on the in-memory state. Close is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.subs = nil
	m.mu.Unlock()

	if c, ok := m.audit.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats is a point-in-time snapshot of broker activity.
type Stats struct {
	Mode          Mode   `json:"mode"`
	Status        Status `json:"status"`
	InFlight      int    `json:"in_flight"`
	Dispatched    uint64 `json:"dispatched"`
	Blocked       uint64 `json:"blocked"`
	LedgerSize    int    `json:"ledger_size"`
	AllowlistSize int    `json:"allowlist_size"`
}

// Stats returns a snapshot of broker counters and state.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Mode:          m.mode,
		Status:        m.status,
		InFlight:      m.inflight,
		Dispatched:    m.dispatched,
		Blocked:       m.blocked,
		LedgerSize:    m.history.size(),
		AllowlistSize: m.allow.size(),
	}
}
