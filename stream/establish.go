// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bureau-foundation/deskshare/lib/config"
	"github.com/bureau-foundation/deskshare/transport"
)

// PathEstablisher turns account policy into transport requests and
// drives a transport.Establisher. Errors wrap ErrConfiguration or
// ErrTransportEstablish. Nothing is retried.
type PathEstablisher struct {
	establisher transport.Establisher
	account     config.AccountConfig
	transport   config.TransportConfig
}

// NewPathEstablisher creates a PathEstablisher.
func NewPathEstablisher(establisher transport.Establisher, account config.AccountConfig, transportConfig config.TransportConfig) *PathEstablisher {
	return &PathEstablisher{
		establisher: establisher,
		account:     account,
		transport:   transportConfig,
	}
}

// RelaySettings decides whether a stream in direction goes through a
// relay and whether its hops use TLS. It returns a nil relay for
// direct streams, whose security follows transport.security. A relay
// without explicit configuration is located from the account domain
// and reached over TLS.
func (p *PathEstablisher) RelaySettings(direction Direction) (*transport.RelaySettings, bool, error) {
	policy := p.account.NATTraversal
	useRelay := policy.UseRelayForInbound
	if direction == Outgoing {
		useRelay = policy.UseRelayForOutbound
	}
	if !useRelay {
		return nil, p.transport.Security == config.SecurityTLS, nil
	}

	username, domain, err := p.account.Credentials()
	if err != nil {
		return nil, false, fmt.Errorf("%w: relay credentials: %w", ErrConfiguration, err)
	}
	relay := &transport.RelaySettings{
		Domain:   domain,
		Username: username,
		Password: p.account.Password,
	}
	if policy.Relay == nil {
		relay.UseTLS = true
		return relay, true, nil
	}
	relay.Host = policy.Relay.Host
	relay.Port = policy.Relay.Port
	relay.UseTLS = policy.Relay.Transport == config.SecurityTLS
	return relay, relay.UseTLS, nil
}

// Request builds the local endpoint request with a fresh session id.
// Only acceptors take the configured local port; connectors do not
// listen.
func (p *PathEstablisher) Request(direction Direction, useTLS bool) (transport.Request, error) {
	request := transport.Request{
		Host:      resolveLocalIP(p.transport),
		UseTLS:    useTLS,
		SessionID: uuid.NewString(),
	}
	if direction == Incoming {
		request.Port = p.transport.LocalPort
	}
	if useTLS {
		certificate, err := loadCertificate(p.transport)
		if err != nil {
			return transport.Request{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		request.Certificate = certificate
	}
	return request, nil
}

// Prepare resolves relay policy and prepares the transport: a
// connector for outgoing streams, an acceptor for incoming ones.
func (p *PathEstablisher) Prepare(ctx context.Context, direction Direction) (transport.Pending, transport.Path, error) {
	relay, useTLS, err := p.RelaySettings(direction)
	if err != nil {
		return nil, nil, err
	}
	request, err := p.Request(direction, useTLS)
	if err != nil {
		return nil, nil, err
	}

	prepare := p.establisher.PrepareAccept
	if direction == Outgoing {
		prepare = p.establisher.PrepareConnect
	}
	pending, path, err := prepare(ctx, request, relay)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: preparing %s transport: %w", ErrTransportEstablish, direction, err)
	}
	return pending, path, nil
}

// Complete turns pending into a live connection toward remote.
func (p *PathEstablisher) Complete(ctx context.Context, pending transport.Pending, remote transport.Path) (*transport.Conn, error) {
	conn, err := pending.Complete(ctx, remote)
	if err != nil {
		return nil, fmt.Errorf("%w: completing transport to %s: %w", ErrTransportEstablish, remote, err)
	}
	return conn, nil
}

// Cleanup releases a pending handle that will not be completed.
func (p *PathEstablisher) Cleanup(pending transport.Pending) error {
	if pending == nil {
		return nil
	}
	if err := pending.Cleanup(); err != nil {
		return fmt.Errorf("cleaning up pending transport: %w", err)
	}
	return nil
}
