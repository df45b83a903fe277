// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/deskshare/lib/config"
	"github.com/bureau-foundation/deskshare/transport"
)

func TestPathEstablisherRelaySettings(t *testing.T) {
	tests := []struct {
		name      string
		nat       config.NATTraversalConfig
		security  string
		direction Direction
		wantRelay *transport.RelaySettings
		wantTLS   bool
	}{
		{
			name:      "direct follows transport security",
			security:  config.SecurityTCP,
			direction: Outgoing,
		},
		{
			name:      "direct tls",
			security:  config.SecurityTLS,
			direction: Incoming,
			wantTLS:   true,
		},
		{
			name:      "outbound relay without explicit relay defaults to TLS",
			nat:       config.NATTraversalConfig{UseRelayForOutbound: true},
			security:  config.SecurityTCP,
			direction: Outgoing,
			wantRelay: &transport.RelaySettings{Domain: "example.org", Username: "alice", Password: "secret", UseTLS: true},
			wantTLS:   true,
		},
		{
			name:      "outbound relay policy does not apply to inbound",
			nat:       config.NATTraversalConfig{UseRelayForOutbound: true},
			security:  config.SecurityTCP,
			direction: Incoming,
		},
		{
			name: "explicit relay inherits its transport",
			nat: config.NATTraversalConfig{
				UseRelayForInbound: true,
				Relay:              &config.RelayConfig{Host: "relay.example.org", Port: 2855, Transport: config.SecurityTCP},
			},
			security:  config.SecurityTLS,
			direction: Incoming,
			wantRelay: &transport.RelaySettings{Domain: "example.org", Username: "alice", Password: "secret", Host: "relay.example.org", Port: 2855},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Account.NATTraversal = test.nat
			cfg.Transport.Security = test.security
			paths := NewPathEstablisher(newFakeEstablisher(), cfg.Account, cfg.Transport)

			relay, useTLS, err := paths.RelaySettings(test.direction)
			if err != nil {
				t.Fatalf("RelaySettings: %v", err)
			}
			if useTLS != test.wantTLS {
				t.Errorf("useTLS = %v, want %v", useTLS, test.wantTLS)
			}
			switch {
			case test.wantRelay == nil && relay != nil:
				t.Errorf("relay = %+v, want none", relay)
			case test.wantRelay != nil && (relay == nil || *relay != *test.wantRelay):
				t.Errorf("relay = %+v, want %+v", relay, test.wantRelay)
			}
		})
	}
}

func TestPathEstablisherPrepare(t *testing.T) {
	cfg := testConfig()
	cfg.Transport.LocalPort = 2855
	establisher := newFakeEstablisher()
	paths := NewPathEstablisher(establisher, cfg.Account, cfg.Transport)

	if _, _, err := paths.Prepare(t.Context(), Outgoing); err != nil {
		t.Fatalf("Prepare outgoing: %v", err)
	}
	if _, _, err := paths.Prepare(t.Context(), Incoming); err != nil {
		t.Fatalf("Prepare incoming: %v", err)
	}

	establisher.mu.Lock()
	requests := establisher.requests
	establisher.mu.Unlock()
	if len(requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(requests))
	}
	if requests[0].Port != 0 {
		t.Errorf("connector port = %d, want 0", requests[0].Port)
	}
	if requests[1].Port != 2855 {
		t.Errorf("acceptor port = %d, want 2855", requests[1].Port)
	}
	if requests[0].Host != "127.0.0.1" {
		t.Errorf("Host = %q, want configured local IP", requests[0].Host)
	}
	if requests[0].SessionID == "" || requests[0].SessionID == requests[1].SessionID {
		t.Errorf("session ids %q and %q must be fresh and distinct", requests[0].SessionID, requests[1].SessionID)
	}
	if requests[0].UseTLS || requests[0].Certificate != nil {
		t.Error("plain TCP request carries TLS settings")
	}
}

func TestPathEstablisherTLSRequestHasCertificate(t *testing.T) {
	cfg := testConfig()
	cfg.Transport.Security = config.SecurityTLS
	paths := NewPathEstablisher(newFakeEstablisher(), cfg.Account, cfg.Transport)

	request, err := paths.Request(Incoming, true)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if !request.UseTLS || request.Certificate == nil {
		t.Fatalf("request = %+v, want TLS with a certificate", request)
	}

	// The ephemeral certificate is shared across streams.
	again, err := paths.Request(Incoming, true)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if again.Certificate != request.Certificate {
		t.Error("ephemeral certificate regenerated for a second stream")
	}
}

func TestPathEstablisherCompleteWrapsErrors(t *testing.T) {
	establisher := newFakeEstablisher()
	establisher.completeErr = errors.New("refused")
	cfg := testConfig()
	paths := NewPathEstablisher(establisher, cfg.Account, cfg.Transport)

	pending, _, err := paths.Prepare(t.Context(), Outgoing)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := paths.Complete(t.Context(), pending, testPath(t, "msrp://127.0.0.1:1/x;tcp")); !errors.Is(err, ErrTransportEstablish) {
		t.Errorf("Complete error = %v, want ErrTransportEstablish", err)
	}
	if err := paths.Cleanup(nil); err != nil {
		t.Errorf("Cleanup(nil): %v", err)
	}
}
