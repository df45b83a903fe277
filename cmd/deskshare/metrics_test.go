// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/deskshare/lib/notify"
	"github.com/bureau-foundation/deskshare/lib/streammetrics"
	"github.com/bureau-foundation/deskshare/lib/testutil"
	"github.com/bureau-foundation/deskshare/stream"
)

func TestServeMetrics(t *testing.T) {
	center := notify.NewCenter(nil)
	registry := prometheus.NewRegistry()
	collector, err := streammetrics.New(center, registry)
	if err != nil {
		t.Fatalf("streammetrics.New: %v", err)
	}
	defer collector.Close()
	center.Post(stream.NotificationDidStart, new(int), nil)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- serveMetrics(ctx, listener, registry, testutil.Logger()) }()

	response, err := http.Get("http://" + listener.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, err := io.ReadAll(response.Body)
	response.Body.Close()
	if err != nil {
		t.Fatalf("reading /metrics: %v", err)
	}
	if response.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", response.StatusCode, http.StatusOK)
	}
	if !strings.Contains(string(body), "deskshare_stream_running 1") {
		t.Errorf("/metrics does not report the running stream:\n%s", body)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "metrics server did not stop"); err != nil {
		t.Errorf("serveMetrics = %v, want nil after cancellation", err)
	}
}
