// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package connectivity implements the policy-enforcing network gateway
// broker for Lumen.
//
// Every outbound network attempt the application makes passes through a
// single Manager, which enforces the user's persisted trust policy
// (offline-only, assisted, connected), keeps an auditable history of
// dispatched requests, and notifies subscribers of mode, status, and
// request events. The broker never fails open: a missing or corrupt
// mode store resolves to offline-only.
//
// The Manager does no network I/O itself. The actual transport is behind
// the Gateway interface, which reports ordinary network failures inside
// the Response rather than as errors.
package connectivity
