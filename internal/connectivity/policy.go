// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// policy.go - Pure trust policy evaluation for the connectivity broker.
//
// Evaluation is side-effect free: given a mode, an allowlist match, and a
// request, it produces a Decision. Block reasons carry a stable tag for
// programmatic matching plus human-readable text the UI may localize.

package connectivity

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// BLOCK TAGS
// =============================================================================

// BlockTag is a stable, machine-matchable identifier for why a request
// was blocked. Tests and UI layers match on the tag, not the text.
type BlockTag string

const (
	// BlockMissingIntent: the request carried no justification.
	BlockMissingIntent BlockTag = "missing_intent"

	// BlockOfflineMode: the broker is in offline-only mode.
	BlockOfflineMode BlockTag = "offline_mode"

	// BlockNotAllowlisted: assisted mode and no allowlist prefix matched.
	BlockNotAllowlisted BlockTag = "not_in_allowlist"
)

// =============================================================================
// DECISION
// =============================================================================

// Decision is the outcome of policy evaluation for a single request.
type Decision struct {
	// Allowed is true when the request may be dispatched.
	Allowed bool

	// Tag identifies the block cause when Allowed is false.
	Tag BlockTag

	// Reason is human-readable text describing the block.
	Reason string
}

// allowed is the decision for a dispatchable request.
func allowed() Decision {
	return Decision{Allowed: true}
}

// blocked builds a block decision with the given tag and reason text.
func blocked(tag BlockTag, reason string) Decision {
	return Decision{Allowed: false, Tag: tag, Reason: reason}
}

// evaluate applies the trust policy to a request. It is pure: no locks,
// no side effects. The caller supplies whether any allowlist prefix
// matched the endpoint so the allowlist snapshot and the mode read happen
// under one lock in the Manager.
func evaluate(mode Mode, allowlisted bool, req Request) Decision {
	switch mode {
	case ModeOfflineOnly:
		return blocked(BlockOfflineMode,
			fmt.Sprintf("request to %s blocked: offline mode is active", req.Endpoint))
	case ModeAssisted:
		if allowlisted {
			return allowed()
		}
		return blocked(BlockNotAllowlisted,
			fmt.Sprintf("endpoint %s is not in allowlist", req.Endpoint))
	case ModeConnected:
		return allowed()
	default:
		// Unknown modes fail safe, same as offline-only.
		return blocked(BlockOfflineMode,
			fmt.Sprintf("request to %s blocked: offline mode is active (unknown mode %q)", req.Endpoint, mode))
	}
}

// missingIntent is the decision for a request with a blank intent.
// Intent is checked before policy: even connected mode rejects these.
func missingIntent(req Request) Decision {
	return blocked(BlockMissingIntent,
		fmt.Sprintf("request to %s rejected: missing intent", req.Endpoint))
}

// hasIntent reports whether the request carries a non-blank intent.
func hasIntent(req Request) bool {
	return strings.TrimSpace(req.Intent) != ""
}

// =============================================================================
// BLOCKED ERROR
// =============================================================================

// ErrBlocked is the sentinel all policy blocks match via errors.Is.
var ErrBlocked = errors.New("request blocked by connectivity policy")

// BlockedError is the error Dispatch returns when policy blocks a
// request. It is an expected outcome, not an exception: no ledger entry
// is written and no gateway call is made.
type BlockedError struct {
	Tag    BlockTag
	Reason string
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return e.Reason
}

// Is matches ErrBlocked so callers can errors.Is without the concrete type.
func (e *BlockedError) Is(target error) bool {
	return target == ErrBlocked
}

// blockedError converts a block decision into the returned error.
func (d Decision) blockedError() *BlockedError {
	return &BlockedError{Tag: d.Tag, Reason: d.Reason}
}
