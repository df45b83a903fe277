// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Compile-time interface checks.
var (
	_ Establisher = (*TCPEstablisher)(nil)
	_ Pending     = (*tcpConnector)(nil)
	_ Pending     = (*tcpAcceptor)(nil)
)

// TCPEstablisher establishes chunk connections over direct TCP, or TLS
// for msrps hops. It requires direct reachability between peers; use
// WebRTCEstablisher when a relay is needed.
type TCPEstablisher struct {
	logger *slog.Logger

	// DialTimeout bounds the connector's dial. Zero means only the
	// context deadline applies.
	DialTimeout time.Duration
}

// NewTCPEstablisher creates a TCP establisher.
func NewTCPEstablisher(logger *slog.Logger) *TCPEstablisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &TCPEstablisher{logger: logger}
}

// PrepareConnect records the local endpoint. Nothing is dialed until
// Complete learns the remote path.
func (e *TCPEstablisher) PrepareConnect(_ context.Context, request Request, relay *RelaySettings) (Pending, Path, error) {
	if relay != nil {
		return nil, nil, fmt.Errorf("connecting through relay %s: %w", relay.Domain, ErrRelayUnsupported)
	}
	if request.SessionID == "" {
		return nil, nil, errors.New("preparing connector: empty session id")
	}

	localPath := Path{{
		Host:      request.Host,
		Port:      request.Port,
		SessionID: request.SessionID,
		UseTLS:    request.UseTLS,
		Transport: ParamTCP,
	}}
	return &tcpConnector{establisher: e, request: request, localPath: localPath}, localPath, nil
}

// PrepareAccept starts listening so the advertised path carries the
// bound port.
func (e *TCPEstablisher) PrepareAccept(_ context.Context, request Request, relay *RelaySettings) (Pending, Path, error) {
	if relay != nil {
		return nil, nil, fmt.Errorf("accepting through relay %s: %w", relay.Domain, ErrRelayUnsupported)
	}
	if request.SessionID == "" {
		return nil, nil, errors.New("preparing acceptor: empty session id")
	}
	if request.UseTLS && request.Certificate == nil {
		return nil, nil, errors.New("preparing acceptor: TLS requires a certificate")
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(request.Host, strconv.Itoa(request.Port)))
	if err != nil {
		return nil, nil, fmt.Errorf("listening on %s:%d: %w", request.Host, request.Port, err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	if request.UseTLS {
		listener = tls.NewListener(listener, &tls.Config{
			Certificates: []tls.Certificate{*request.Certificate},
			MinVersion:   tls.VersionTLS12,
		})
	}

	localPath := Path{{
		Host:      request.Host,
		Port:      port,
		SessionID: request.SessionID,
		UseTLS:    request.UseTLS,
		Transport: ParamTCP,
	}}
	e.logger.Debug("acceptor listening", "path", localPath.String())
	return &tcpAcceptor{establisher: e, listener: listener, localPath: localPath}, localPath, nil
}

type tcpConnector struct {
	establisher *TCPEstablisher
	request     Request
	localPath   Path
	consumed    atomic.Bool
}

func (p *tcpConnector) Complete(ctx context.Context, remote Path) (*Conn, error) {
	if !p.consumed.CompareAndSwap(false, true) {
		return nil, ErrPendingConsumed
	}
	if len(remote) == 0 {
		return nil, errors.New("connecting: empty remote path")
	}
	next := remote[0]

	dialer := &net.Dialer{Timeout: p.establisher.DialTimeout}
	var raw net.Conn
	var err error
	if next.UseTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: p.clientTLSConfig()}
		raw, err = tlsDialer.DialContext(ctx, "tcp", next.Address())
	} else {
		raw, err = dialer.DialContext(ctx, "tcp", next.Address())
	}
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", next, err)
	}

	conn := NewConn(raw, p.localPath, remote, p.establisher.logger)
	if err := bindConnector(ctx, conn); err != nil {
		conn.Shutdown(false)
		return nil, fmt.Errorf("binding to %s: %w", next, err)
	}

	p.establisher.logger.Info("chunk connection established",
		"role", "connector",
		"local", p.localPath.String(),
		"remote", remote.String(),
	)
	return conn, nil
}

// Cleanup is a no-op beyond consuming the handle; a connector holds no
// resources before Complete.
func (p *tcpConnector) Cleanup() error {
	p.consumed.Store(true)
	return nil
}

// clientTLSConfig skips chain verification: peers present self-signed
// certificates and the bind handshake ties the connection to the
// negotiated session.
func (p *tcpConnector) clientTLSConfig() *tls.Config {
	config := &tls.Config{
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS12,
	}
	if p.request.Certificate != nil {
		config.Certificates = []tls.Certificate{*p.request.Certificate}
	}
	return config
}

type tcpAcceptor struct {
	establisher *TCPEstablisher
	listener    net.Listener
	localPath   Path
	consumed    atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// Complete accepts connections until one binds to the local session.
// Connections bound elsewhere are answered 481 and dropped.
func (p *tcpAcceptor) Complete(ctx context.Context, remote Path) (*Conn, error) {
	if !p.consumed.CompareAndSwap(false, true) {
		return nil, ErrPendingConsumed
	}
	defer p.closeListener()
	stop := context.AfterFunc(ctx, func() { p.closeListener() })
	defer stop()

	for {
		raw, err := p.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("accepting on %s: %w", p.localPath, err)
		}

		conn := NewConn(raw, p.localPath, remote, p.establisher.logger)
		if err := bindAcceptor(ctx, conn, p.localPath); err != nil {
			conn.Shutdown(true)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.establisher.logger.Warn("dropping connection that failed to bind",
				"local", p.localPath.String(),
				"peer", raw.RemoteAddr().String(),
				"error", err,
			)
			continue
		}

		p.establisher.logger.Info("chunk connection established",
			"role", "acceptor",
			"local", p.localPath.String(),
			"remote", remote.String(),
		)
		return conn, nil
	}
}

// Cleanup stops listening. It also aborts a Complete blocked in
// Accept.
func (p *tcpAcceptor) Cleanup() error {
	p.consumed.Store(true)
	return p.closeListener()
}

func (p *tcpAcceptor) closeListener() error {
	p.closeOnce.Do(func() {
		if err := p.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			p.closeErr = fmt.Errorf("closing listener on %s: %w", p.localPath, err)
		}
	})
	return p.closeErr
}
