// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package connectivity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// MODE
// =============================================================================

// Mode is the user's persisted network trust policy.
type Mode string

const (
	// ModeOfflineOnly blocks every outbound request. This is the safe
	// default: a fresh or unreadable mode store always resolves here.
	ModeOfflineOnly Mode = "offline-only"

	// ModeAssisted allows requests whose endpoint matches an allowlist
	// prefix and blocks everything else.
	ModeAssisted Mode = "assisted"

	// ModeConnected allows all requests unconditionally.
	ModeConnected Mode = "connected"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeOfflineOnly, ModeAssisted, ModeConnected:
		return true
	}
	return false
}

// String returns the wire/storage spelling of the mode.
func (m Mode) String() string {
	return string(m)
}

// ParseMode parses a mode string. Unknown values return ModeOfflineOnly
// and false so callers fail safe rather than fail open.
func ParseMode(s string) (Mode, bool) {
	m := Mode(s)
	if m.Valid() {
		return m, true
	}
	return ModeOfflineOnly, false
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the live activity indicator derived from Mode and the number
// of requests currently in flight. It is never persisted.
type Status string

const (
	// StatusOffline is forced whenever Mode is ModeOfflineOnly,
	// regardless of in-flight activity.
	StatusOffline Status = "offline"

	// StatusIdle means the broker may dispatch but nothing is in flight.
	StatusIdle Status = "idle"

	// StatusActive means at least one dispatch is in flight.
	StatusActive Status = "active"
)

// String returns the display spelling of the status.
func (s Status) String() string {
	return string(s)
}

// deriveStatus computes the status for a mode and in-flight count.
func deriveStatus(mode Mode, inflight int) Status {
	if mode == ModeOfflineOnly {
		return StatusOffline
	}
	if inflight > 0 {
		return StatusActive
	}
	return StatusIdle
}

// =============================================================================
// REQUEST / RESPONSE
// =============================================================================

// Request is an attempted outbound call. Requests are immutable once
// constructed; the broker never modifies one after NewRequest.
type Request struct {
	// ID uniquely identifies this attempt across the ledger and audit log.
	ID string `json:"id"`

	// Endpoint is the full URL the request targets.
	Endpoint string `json:"endpoint"`

	// Method is the HTTP method. Empty defaults to GET at the gateway.
	Method string `json:"method,omitempty"`

	// Intent is the mandatory human-readable justification for the call.
	// A request with a blank intent is rejected before policy evaluation.
	Intent string `json:"intent"`

	// Payload is the optional request body.
	Payload []byte `json:"payload,omitempty"`

	// Timestamp records when the request was constructed.
	Timestamp time.Time `json:"timestamp"`
}

// NewRequest constructs a Request with a fresh ID and timestamp.
func NewRequest(endpoint, method, intent string, payload []byte) Request {
	return Request{
		ID:        uuid.NewString(),
		Endpoint:  endpoint,
		Method:    method,
		Intent:    intent,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Response is the outcome of a dispatched request, produced once per
// dispatch by the Gateway. Ordinary network failures are described here
// (Success=false, Err set), never raised as Go errors.
type Response struct {
	// Success is true for a completed call with a 2xx status.
	Success bool `json:"success"`

	// StatusCode is the HTTP status code, or 0 if the call never
	// reached the remote server.
	StatusCode int `json:"status_code,omitempty"`

	// Data is the response body, if any.
	Data []byte `json:"data,omitempty"`

	// Err describes the failure when Success is false.
	Err string `json:"error,omitempty"`

	// Duration is how long the gateway call took.
	Duration time.Duration `json:"duration_ns"`
}

// =============================================================================
// LEDGER ENTRY
// =============================================================================

// Entry is one audit record in the history ledger: a dispatched request,
// its response, and when the dispatch completed. Only requests that pass
// policy and complete (not canceled) are ledgered.
type Entry struct {
	ID        string    `json:"id"`
	Request   Request   `json:"request"`
	Response  Response  `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway performs one network call. It is the sole I/O boundary of the
// broker.
//
// Implementations must return a Response describing the failure for
// ordinary network errors (DNS, connect, timeout, non-2xx) rather than
// panicking, and must honor ctx cancellation promptly. The Manager treats
// a panic from Send as a gateway defect and converts it into a failed
// Response.
type Gateway interface {
	Send(ctx context.Context, req Request) Response
}

// GatewayFunc adapts a plain function to the Gateway interface.
type GatewayFunc func(ctx context.Context, req Request) Response

// Send calls f.
func (f GatewayFunc) Send(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// =============================================================================
// MODE STORE
// =============================================================================

// ModeStore persists the single Mode value across process restarts.
// Mode is the only broker state that survives a restart.
//
// Load must fail safe: a missing or corrupt store yields ModeOfflineOnly.
// Implementations may also return the underlying error for visibility;
// the Manager falls back to ModeOfflineOnly either way.
type ModeStore interface {
	Load() (Mode, error)
	Save(Mode) error
}

// =============================================================================
// AUDIT SINK
// =============================================================================

// AuditSink receives broker events for durable audit logging. Record must
// never panic; sink failures are the sink's problem, not the broker's.
type AuditSink interface {
	Record(event string, success bool, metadata map[string]string)
}

// Audit event types emitted by the Manager.
const (
	EventModeChanged       = "MODE_CHANGED"
	EventOfflineSwitch     = "OFFLINE_SWITCH"
	EventRequestBlocked    = "REQUEST_BLOCKED"
	EventRequestDispatched = "REQUEST_DISPATCHED"
)
