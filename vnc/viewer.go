// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vnc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/deskshare/stream"
)

// Viewer exposes the remote desktop on a local listener and launches
// the configured viewer program against it.
type Viewer struct {
	// Listen is the local address the viewer connects to.
	Listen  string
	Remote  stream.Identity
	Options stream.ViewerOptions
	Logger  *slog.Logger

	// Ready, when set, is called with the bound listener address
	// before the viewer program starts.
	Ready func(net.Addr)
}

// Run listens, starts the viewer program when one is configured, and
// bridges the first accepted connection to remote. It returns nil when
// the viewer disconnects or the program exits cleanly.
func (v *Viewer) Run(ctx context.Context, remote io.ReadWriteCloser) error {
	listener, err := net.Listen("tcp", v.Listen)
	if err != nil {
		return fmt.Errorf("listening for viewer on %s: %w", v.Listen, err)
	}
	defer listener.Close()

	address := listener.Addr()
	v.Logger.Info("remote desktop available",
		"peer", v.Remote.String(),
		"address", address.String(),
		"depth", v.Options.ColorDepth,
	)
	if v.Ready != nil {
		v.Ready(address)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	if v.Options.ClientCommand != "" {
		command, err := v.command(ctx, address)
		if err != nil {
			return err
		}
		if err := command.Start(); err != nil {
			return fmt.Errorf("starting viewer %s: %w", command.Path, err)
		}
		group.Go(func() error {
			err := command.Wait()
			// Ending the viewer ends the session.
			defer cancel()
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("viewer %s: %w", command.Path, err)
			}
			return nil
		})
	}

	group.Go(func() error {
		stopAccept := context.AfterFunc(ctx, func() {
			listener.Close()
			remote.Close()
		})
		defer stopAccept()

		local, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting viewer connection: %w", err)
		}
		listener.Close()
		v.Logger.Debug("viewer connected", "address", local.RemoteAddr().String())

		err = bridge(ctx, v.Logger, local, remote)
		cancel()
		return err
	})

	return group.Wait()
}

// command builds the viewer invocation. ClientCommand may carry its
// own arguments; the colour depth and the listener address follow
// them.
func (v *Viewer) command(ctx context.Context, address net.Addr) (*exec.Cmd, error) {
	fields := strings.Fields(v.Options.ClientCommand)
	if len(fields) == 0 {
		return nil, errors.New("empty viewer command")
	}
	arguments := append(fields[1:], viewerArguments(address, v.Options.ColorDepth)...)
	return exec.CommandContext(ctx, fields[0], arguments...), nil
}

// viewerArguments uses the host::port form, which VNC viewers read as
// a TCP port rather than a display number.
func viewerArguments(address net.Addr, depth int) []string {
	var arguments []string
	if depth > 0 {
		arguments = append(arguments, "-depth", strconv.Itoa(depth))
	}
	host, port, err := net.SplitHostPort(address.String())
	if err != nil {
		return append(arguments, address.String())
	}
	return append(arguments, host+"::"+port)
}
