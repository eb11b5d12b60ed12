// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// handlers.go - Command handlers for lumen-connect.
//
// Each handler builds the broker from configuration, performs one
// operation, and prints the result. The history ledger is in-memory, so
// the history/clear commands cover the current invocation; the audit log
// is the durable record across invocations.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lumenlabs/connectivity/internal/audit"
	"github.com/lumenlabs/connectivity/internal/config"
	"github.com/lumenlabs/connectivity/internal/connectivity"
	"github.com/lumenlabs/connectivity/internal/gateway"
	"github.com/lumenlabs/connectivity/internal/modestore"
)

// broker bundles the wired-up manager with the resources it owns.
type broker struct {
	manager *connectivity.Manager
	store   *modestore.Store
	cfg     *config.Config
	auditor *audit.Logger
}

// newBroker constructs the manager from configuration.
func newBroker() (*broker, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := modestore.NewStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open mode store: %w", err)
	}

	gw := gateway.NewHTTP(gateway.WithTimeout(cfg.GatewayTimeout()))

	opts := []connectivity.Option{
		connectivity.WithAllowlist(cfg.Allowlist),
	}

	var auditor *audit.Logger
	if cfg.Audit.Enabled {
		auditor, err = audit.NewLogger(cfg.Audit.Path,
			audit.WithMaxSize(cfg.Audit.MaxSizeMB*1024*1024))
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		opts = append(opts, connectivity.WithAuditSink(auditor))
	}

	if cfg.Dispatch.RatePerSec > 0 {
		opts = append(opts, connectivity.WithRateLimit(cfg.Dispatch.RatePerSec, cfg.Dispatch.Burst))
	}

	return &broker{
		manager: connectivity.NewManager(store, gw, opts...),
		store:   store,
		cfg:     cfg,
		auditor: auditor,
	}, nil
}

// close releases broker resources, including the audit sink.
func (b *broker) close() {
	b.manager.Close()
}

// =============================================================================
// STATUS / MODE
// =============================================================================

// HandleStatus prints the broker state snapshot.
func HandleStatus(args []string) error {
	parser := NewArgParser(args)
	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.close()

	stats := b.manager.Stats()
	if parser.BoolFlag("json") {
		return printJSON(stats)
	}

	fmt.Printf("Mode:       %s\n", stats.Mode)
	fmt.Printf("Status:     %s\n", stats.Status)
	fmt.Printf("Online:     %t\n", b.manager.IsOnline())
	fmt.Printf("Allowlist:  %d prefixes\n", stats.AllowlistSize)
	fmt.Printf("Dispatched: %d\n", stats.Dispatched)
	fmt.Printf("Blocked:    %d\n", stats.Blocked)
	fmt.Printf("Store:      %s\n", b.store.Path())
	return nil
}

// HandleMode shows or sets the trust mode.
func HandleMode(args []string) error {
	parser := NewArgParser(args)
	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.close()

	switch parser.Subcommand() {
	case "", "show":
		fmt.Println(b.manager.Mode())
		return nil
	case "set":
		raw := parser.Positional(1)
		mode, ok := connectivity.ParseMode(raw)
		if !ok {
			return fmt.Errorf("unknown mode %q (use offline-only, assisted, or connected)", raw)
		}
		if err := b.manager.SetMode(mode); err != nil {
			return err
		}
		fmt.Printf("mode set to %s\n", mode)
		return nil
	default:
		return fmt.Errorf("unknown mode subcommand %q", parser.Subcommand())
	}
}

// HandleOffline pulls the kill switch.
func HandleOffline(args []string) error {
	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.close()

	if err := b.manager.GoOfflineNow(); err != nil {
		return err
	}
	fmt.Println("offline-only mode forced; all new dispatches are blocked")
	return nil
}

// =============================================================================
// ALLOWLIST
// =============================================================================

// HandleAllow adds an endpoint prefix to the allowlist.
func HandleAllow(args []string) error {
	parser := NewArgParser(args)
	prefix := parser.Positional(0)
	if prefix == "" {
		return fmt.Errorf("usage: lumen-connect allow <endpoint-prefix>")
	}

	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.close()

	b.manager.Allow(prefix)
	if err := saveAllowlist(b); err != nil {
		return err
	}
	fmt.Printf("allowed: %s\n", prefix)
	return nil
}

// HandleDeny removes an endpoint prefix from the allowlist.
func HandleDeny(args []string) error {
	parser := NewArgParser(args)
	prefix := parser.Positional(0)
	if prefix == "" {
		return fmt.Errorf("usage: lumen-connect deny <endpoint-prefix>")
	}

	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.close()

	b.manager.Deny(prefix)
	if err := saveAllowlist(b); err != nil {
		return err
	}
	fmt.Printf("denied: %s\n", prefix)
	return nil
}

// HandleAllowlist prints the allowlist snapshot.
func HandleAllowlist(args []string) error {
	parser := NewArgParser(args)
	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.close()

	allowed := b.manager.ListAllowed()
	if parser.BoolFlag("json") {
		return printJSON(allowed)
	}
	if len(allowed) == 0 {
		fmt.Println("allowlist is empty")
		return nil
	}
	for _, prefix := range allowed {
		fmt.Println(prefix)
	}
	return nil
}

// saveAllowlist writes the manager's allowlist back into the config file
// so allow/deny survive across CLI invocations.
func saveAllowlist(b *broker) error {
	b.cfg.Allowlist = b.manager.ListAllowed()
	path, err := config.DefaultPath()
	if err != nil {
		return err
	}
	return config.Save(b.cfg, path)
}

// =============================================================================
// CHECK / SEND
// =============================================================================

// HandleCheck evaluates policy for an endpoint without dispatching.
func HandleCheck(args []string) error {
	parser := NewArgParser(args)
	endpoint := parser.Positional(0)
	if endpoint == "" {
		return fmt.Errorf("usage: lumen-connect check <url> --intent \"why\"")
	}

	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.close()

	req := connectivity.NewRequest(endpoint, "", parser.Flag("intent"), nil)
	decision := b.manager.CheckAllowed(req)
	if parser.BoolFlag("json") {
		return printJSON(decision)
	}
	if decision.Allowed {
		fmt.Println("allowed")
	} else {
		fmt.Printf("blocked [%s]: %s\n", decision.Tag, decision.Reason)
	}
	return nil
}

// HandleSend dispatches one request through the broker.
func HandleSend(args []string) error {
	parser := NewArgParser(args)
	endpoint := parser.Positional(0)
	if endpoint == "" {
		return fmt.Errorf("usage: lumen-connect send <url> --intent \"why\"")
	}

	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.close()

	var payload []byte
	if data := parser.Flag("data"); data != "" {
		payload = []byte(data)
	}
	req := connectivity.NewRequest(endpoint, parser.Flag("method"), parser.Flag("intent"), payload)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := b.manager.Dispatch(ctx, req)
	if err != nil {
		return err
	}

	if parser.BoolFlag("json") {
		return printJSON(resp)
	}
	if resp.Success {
		fmt.Printf("ok: %d (%d bytes in %s)\n", resp.StatusCode, len(resp.Data), resp.Duration)
	} else {
		fmt.Printf("failed: %s\n", resp.Err)
	}
	return nil
}

// =============================================================================
// HISTORY / AUDIT
// =============================================================================

// HandleHistory prints the session ledger.
func HandleHistory(args []string) error {
	parser := NewArgParser(args)
	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.close()

	var entries []connectivity.Entry
	if n := parser.FlagIntOrDefault("lines", 0); n > 0 {
		entries = b.manager.Recent(n)
	} else {
		entries = b.manager.History()
	}

	if parser.BoolFlag("json") {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("no requests dispatched this session")
		return nil
	}
	for _, e := range entries {
		outcome := "ok"
		if !e.Response.Success {
			outcome = "failed"
		}
		fmt.Printf("%s  %-7s %s  [%s] %s\n",
			e.Timestamp.Format("15:04:05"), outcome, e.Request.Endpoint,
			e.Request.Intent, e.Response.Duration)
	}
	return nil
}

// HandleClear empties the session ledger.
func HandleClear(args []string) error {
	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.close()

	b.manager.Clear()
	fmt.Println("ledger cleared")
	return nil
}

// HandleAudit prints recent audit log entries.
func HandleAudit(args []string) error {
	parser := NewArgParser(args)
	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.close()

	if b.auditor == nil {
		return fmt.Errorf("audit logging is disabled in config")
	}

	events, err := audit.ReadAll(b.auditor.Path())
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}

	n := parser.FlagIntOrDefault("lines", 50)
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}

	if parser.BoolFlag("json") {
		return printJSON(events)
	}
	for _, ev := range events {
		status := "ok"
		if !ev.Success {
			status = "fail"
		}
		fmt.Printf("%s  %-20s %-4s %v\n",
			ev.Timestamp.Format("2006-01-02 15:04:05"), ev.EventType, status, ev.Metadata)
	}
	return nil
}

// =============================================================================
// WATCH
// =============================================================================

// HandleWatch follows broker events until interrupted. With watch_store
// enabled in config, external edits to the mode store are picked up and
// reported too.
func HandleWatch(args []string) error {
	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.close()

	unsubscribe := b.manager.Subscribe(&connectivity.SubscriberFuncs{
		OnModeChanged: func(old, new connectivity.Mode) {
			fmt.Printf("mode changed: %s -> %s\n", old, new)
		},
		OnStatusChanged: func(status connectivity.Status) {
			fmt.Printf("status: %s\n", status)
		},
		OnRequestBlocked: func(req connectivity.Request, d connectivity.Decision) {
			fmt.Printf("blocked [%s]: %s\n", d.Tag, req.Endpoint)
		},
		OnRequestMade: func(entry connectivity.Entry) {
			fmt.Printf("dispatched: %s (%t)\n", entry.Request.Endpoint, entry.Response.Success)
		},
	})
	defer unsubscribe()

	if b.cfg.WatchStore {
		watcher, err := modestore.NewWatcher(b.store, 0, func() {
			if err := b.manager.Reload(); err != nil {
				fmt.Fprintf(os.Stderr, "reload: %v\n", err)
			}
		})
		if err != nil {
			return fmt.Errorf("start store watcher: %w", err)
		}
		if err := watcher.Watch(); err != nil {
			return fmt.Errorf("watch mode store: %w", err)
		}
		defer watcher.Close()
	}

	fmt.Printf("watching broker events (mode=%s); Ctrl-C to stop\n", b.manager.Mode())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
