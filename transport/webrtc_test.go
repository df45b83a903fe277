// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/deskshare/lib/testutil"
)

// TestWebRTCEstablisherConnectAccept connects two establishers through
// a MemorySignaler over loopback host candidates and exchanges a chunk
// larger than one data channel message.
func TestWebRTCEstablisherConnectAccept(t *testing.T) {
	signaler := NewMemorySignaler()
	establisher := NewWebRTCEstablisher(signaler, ICEConfig{}, testLogger())

	connector, connectorPath, err := establisher.PrepareConnect(t.Context(), Request{
		Host:      "127.0.0.1",
		SessionID: "viewer-session",
	}, nil)
	if err != nil {
		t.Fatalf("PrepareConnect: %v", err)
	}
	defer connector.Cleanup()
	acceptor, acceptorPath, err := establisher.PrepareAccept(t.Context(), Request{
		Host:      "127.0.0.1",
		SessionID: "server-session",
	}, nil)
	if err != nil {
		t.Fatalf("PrepareAccept: %v", err)
	}
	defer acceptor.Cleanup()

	if connectorPath[0].Transport != ParamWebRTC {
		t.Errorf("connector transport = %q, want %q", connectorPath[0].Transport, ParamWebRTC)
	}

	accepted := completeAsync(t, acceptor, connectorPath)
	connected := completeAsync(t, connector, acceptorPath)

	active := testutil.RequireReceive(t, connected, 60*time.Second, "connector completion")
	if active.err != nil {
		t.Fatalf("connector Complete: %v", active.err)
	}
	defer active.conn.Shutdown(false)
	passive := testutil.RequireReceive(t, accepted, 60*time.Second, "acceptor completion")
	if passive.err != nil {
		t.Fatalf("acceptor Complete: %v", passive.err)
	}
	defer passive.conn.Shutdown(false)

	payload := bytes.Repeat([]byte("frame"), 8000)
	if err := active.conn.WriteChunk(active.conn.MakeChunk("application/x-rfb", payload)); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	chunk, err := passive.conn.ReadChunk()
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if !bytes.Equal(chunk.Data, payload) {
		t.Errorf("received %d bytes, want %d matching bytes", len(chunk.Data), len(payload))
	}
}

func TestWebRTCCleanupAbortsComplete(t *testing.T) {
	establisher := NewWebRTCEstablisher(NewMemorySignaler(), ICEConfig{}, testLogger())
	acceptor, _, err := establisher.PrepareAccept(t.Context(), Request{
		Host:      "127.0.0.1",
		SessionID: "lonely-session",
	}, nil)
	if err != nil {
		t.Fatalf("PrepareAccept: %v", err)
	}

	remote := Path{{Host: "127.0.0.1", SessionID: "absent-peer", Transport: ParamWebRTC}}
	accepted := completeAsync(t, acceptor, remote)
	testutil.RequireNoReceive(t, accepted, 100*time.Millisecond, "acceptor completed without an offer")

	if err := acceptor.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	result := testutil.RequireReceive(t, accepted, 5*time.Second, "completion after Cleanup")
	if !errors.Is(result.err, errPendingReleased) {
		t.Errorf("Complete error = %v, want errPendingReleased", result.err)
	}
	if err := acceptor.Cleanup(); err != nil {
		t.Errorf("second Cleanup: %v", err)
	}
}
