// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vnc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/bureau-foundation/deskshare/lib/netutil"
	"github.com/bureau-foundation/deskshare/stream"
)

const defaultDialTimeout = 10 * time.Second

// Server serves the local desktop by bridging the stream to a VNC
// server listening at Address. The server is started and configured
// outside this process; Server never launches or reconfigures it.
type Server struct {
	Address string

	// Options records the rendering options the local server is
	// expected to run with. They are logged when serving starts so a
	// mismatch with the running server can be spotted; they are not
	// sent to the server.
	Options stream.ServerOptions
	Logger  *slog.Logger

	// DialTimeout bounds the connection to the local server. Zero
	// means ten seconds.
	DialTimeout time.Duration
}

// Run connects to the local server and copies bytes until either side
// closes or ctx is cancelled.
func (s *Server) Run(ctx context.Context, remote io.ReadWriteCloser) error {
	timeout := s.DialTimeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	local, err := dialer.DialContext(ctx, "tcp", s.Address)
	if err != nil {
		return fmt.Errorf("connecting to VNC server at %s: %w", s.Address, err)
	}

	s.Logger.Info("serving desktop",
		"server", s.Address,
		"options", s.Options.Options,
	)
	return bridge(ctx, s.Logger, local, remote)
}

// bridge copies between local and remote until one side finishes.
// Cancelling ctx closes both.
func bridge(ctx context.Context, logger *slog.Logger, local, remote io.ReadWriteCloser) error {
	stop := context.AfterFunc(ctx, func() {
		local.Close()
		remote.Close()
	})
	defer stop()

	stats, err := netutil.Bridge(local, remote)
	logger.Debug("desktop bridge closed",
		"bytes_to_peer", stats.AToB,
		"bytes_from_peer", stats.BToA,
	)
	if err != nil {
		return fmt.Errorf("bridging desktop stream: %w", err)
	}
	return nil
}
