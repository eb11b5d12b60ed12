// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// events.go - Subscriber notifications for the connectivity broker.
//
// Notification is push, not polling: consumers register a Subscriber and
// receive events synchronously, in registration order, as they happen.
// An event is delivered to the subscribers registered at the moment it
// fires; subscribing later never replays past events.

package connectivity

// Subscriber receives broker notifications. Callbacks run synchronously
// on the goroutine that triggered the event and must not block for long.
// Callbacks may call back into the Manager; no lock is held during
// delivery.
type Subscriber interface {
	// ModeChanged fires after a mode change is committed and persisted.
	ModeChanged(old, new Mode)

	// StatusChanged fires when the derived status actually transitions.
	StatusChanged(status Status)

	// RequestBlocked fires when policy rejects a request. The request
	// was not dispatched and no ledger entry was written.
	RequestBlocked(req Request, decision Decision)

	// RequestMade fires after a dispatched request completes and its
	// ledger entry is recorded.
	RequestMade(entry Entry)
}

// SubscriberFuncs adapts optional callbacks to the Subscriber interface.
// Nil fields are simply skipped.
type SubscriberFuncs struct {
	OnModeChanged    func(old, new Mode)
	OnStatusChanged  func(status Status)
	OnRequestBlocked func(req Request, decision Decision)
	OnRequestMade    func(entry Entry)
}

// ModeChanged implements Subscriber.
func (s *SubscriberFuncs) ModeChanged(old, new Mode) {
	if s.OnModeChanged != nil {
		s.OnModeChanged(old, new)
	}
}

// StatusChanged implements Subscriber.
func (s *SubscriberFuncs) StatusChanged(status Status) {
	if s.OnStatusChanged != nil {
		s.OnStatusChanged(status)
	}
}

// RequestBlocked implements Subscriber.
func (s *SubscriberFuncs) RequestBlocked(req Request, decision Decision) {
	if s.OnRequestBlocked != nil {
		s.OnRequestBlocked(req, decision)
	}
}

// RequestMade implements Subscriber.
func (s *SubscriberFuncs) RequestMade(entry Entry) {
	if s.OnRequestMade != nil {
		s.OnRequestMade(entry)
	}
}

// =============================================================================
// EVENT PLUMBING
// =============================================================================

// event is a pending notification collected under the Manager's lock and
// fired after it is released, so subscriber callbacks can safely call
// back into the Manager.
type event func(Subscriber)

func modeChangedEvent(old, new Mode) event {
	return func(s Subscriber) { s.ModeChanged(old, new) }
}

func statusChangedEvent(status Status) event {
	return func(s Subscriber) { s.StatusChanged(status) }
}

func requestBlockedEvent(req Request, d Decision) event {
	return func(s Subscriber) { s.RequestBlocked(req, d) }
}

func requestMadeEvent(entry Entry) event {
	return func(s Subscriber) { s.RequestMade(entry) }
}

// subscription wraps a Subscriber so identical subscribers registered
// twice can still be removed individually.
type subscription struct {
	sub Subscriber
}

// deliver fires events against a snapshot of subscriptions.
func deliver(subs []*subscription, events []event) {
	for _, ev := range events {
		for _, s := range subs {
			ev(s.sub)
		}
	}
}
