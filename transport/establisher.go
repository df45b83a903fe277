// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"fmt"
)

// Request describes the local endpoint a stream wants.
type Request struct {
	// Host is the local address advertised in the path and, for
	// acceptors, the address listened on.
	Host string

	// Port is the local port. Zero lets the system choose for
	// acceptors and leaves connectors without a listening port.
	Port int

	// UseTLS selects msrps hops.
	UseTLS bool

	// Certificate is presented on TLS hops.
	Certificate *tls.Certificate

	// SessionID names this endpoint in the path.
	SessionID string
}

// RelaySettings describes the relay to traverse. A nil *RelaySettings
// means direct connection only.
type RelaySettings struct {
	Domain   string
	Username string
	Password string

	// Host and Port are empty when the relay is located from Domain.
	Host   string
	Port   int
	UseTLS bool
}

// Establisher prepares chunk connections.
type Establisher interface {
	// PrepareConnect prepares the active side. The returned Path is
	// the local path to advertise.
	PrepareConnect(ctx context.Context, request Request, relay *RelaySettings) (Pending, Path, error)

	// PrepareAccept prepares the passive side.
	PrepareAccept(ctx context.Context, request Request, relay *RelaySettings) (Pending, Path, error)
}

// Pending is a prepared, not yet live connection. Exactly one of
// Complete or Cleanup releases it; Cleanup after either is a no-op.
type Pending interface {
	// Complete finishes establishment toward remote and binds the
	// connection to it.
	Complete(ctx context.Context, remote Path) (*Conn, error)

	// Cleanup releases resources held by an uncompleted Pending.
	Cleanup() error
}

// bindConnector sends the bind chunk on a freshly established
// connection and waits for the acceptor's verdict.
func bindConnector(ctx context.Context, conn *Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Shutdown(false) })
	defer stop()

	bind := conn.MakeChunk("", nil)
	if err := conn.WriteChunk(bind); err != nil {
		return fmt.Errorf("sending bind: %w", err)
	}

	response, err := conn.ReadChunk()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("reading bind response: %w", err)
	}
	if !response.IsResponse() || response.TransactionID != bind.TransactionID {
		return fmt.Errorf("bind: unexpected chunk %s %d in reply", response.Method, response.Status)
	}
	if response.Status != StatusOK {
		return fmt.Errorf("bind rejected with %d %s: %w", response.Status, response.Comment, ErrSessionMismatch)
	}
	return nil
}

// bindAcceptor reads the bind chunk from a freshly accepted connection
// and answers it. It returns ErrSessionMismatch, after answering 481,
// when the chunk is not addressed to localPath's session.
func bindAcceptor(ctx context.Context, conn *Conn, localPath Path) error {
	stop := context.AfterFunc(ctx, func() { conn.Shutdown(false) })
	defer stop()

	bind, err := conn.ReadChunk()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("reading bind: %w", err)
	}
	if bind.Method != MethodSEND {
		return fmt.Errorf("bind: unexpected chunk %q", bind.Method)
	}

	local, _ := localPath.Last()
	target, ok := bind.ToPath.Last()
	if !ok || target.SessionID != local.SessionID {
		if response := MakeResponse(bind, StatusNoSuchSession, "Session does not exist"); response != nil {
			conn.WriteChunk(response)
		}
		return fmt.Errorf("bind addressed to %q, local session is %q: %w", target.SessionID, local.SessionID, ErrSessionMismatch)
	}

	if response := MakeResponse(bind, StatusOK, "OK"); response != nil {
		if err := conn.WriteChunk(response); err != nil {
			return fmt.Errorf("answering bind: %w", err)
		}
	}
	return nil
}
