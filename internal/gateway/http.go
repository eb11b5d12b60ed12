// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP implementation of the
// connectivity.Gateway interface.
//
// The gateway performs exactly one network call per Send and reports
// every ordinary failure (DNS, connect, timeout, non-2xx status, oversize
// body) inside the Response rather than as an error. Cancellation of the
// passed context is honored by the underlying http.Client.
package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/lumenlabs/connectivity/internal/connectivity"
)

// Configuration constants for the HTTP gateway.
const (
	// DefaultTimeout bounds a single request when the caller's context
	// carries no deadline.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps the response body read. Larger bodies fail
	// the request rather than exhausting memory.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	// IntentHeader carries the request's intent on the wire so the
	// user's stated justification is inspectable at the proxy level too.
	IntentHeader = "X-Lumen-Intent"

	// DefaultUserAgent identifies the broker.
	DefaultUserAgent = "lumen-connectivity/1.0"
)

// HTTP is a Gateway backed by a pooled net/http client.
type HTTP struct {
	client    *http.Client
	userAgent string
}

// Option configures the HTTP gateway.
type Option func(*HTTP)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *HTTP) {
		g.client.Timeout = d
	}
}

// WithClient replaces the underlying http.Client entirely.
func WithClient(c *http.Client) Option {
	return func(g *HTTP) {
		g.client = c
	}
}

// WithUserAgent sets the User-Agent header value.
func WithUserAgent(ua string) Option {
	return func(g *HTTP) {
		g.userAgent = ua
	}
}

// NewHTTP creates an HTTP gateway with a pooled transport and TLS 1.2+.
func NewHTTP(opts ...Option) *HTTP {
	g := &HTTP{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
			Timeout: DefaultTimeout,
		},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Send performs the network call described by req.
func (g *HTTP) Send(ctx context.Context, req connectivity.Request) connectivity.Response {
	start := time.Now()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Payload) > 0 {
		body = bytes.NewReader(req.Payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.Endpoint, body)
	if err != nil {
		return failure(start, 0, "invalid request: "+err.Error())
	}
	httpReq.Header.Set("User-Agent", g.userAgent)
	if req.Intent != "" {
		httpReq.Header.Set(IntentHeader, req.Intent)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return failure(start, 0, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return failure(start, resp.StatusCode, "read response body: "+err.Error())
	}
	if len(data) > MaxResponseSize {
		return failure(start, resp.StatusCode, "response body exceeds size limit")
	}

	out := connectivity.Response{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Data:       data,
		Duration:   time.Since(start),
	}
	if !out.Success {
		out.Err = "unexpected status: " + resp.Status
	}
	return out
}

// failure builds a failed response with the elapsed duration.
func failure(start time.Time, statusCode int, msg string) connectivity.Response {
	return connectivity.Response{
		Success:    false,
		StatusCode: statusCode,
		Err:        msg,
		Duration:   time.Since(start),
	}
}
