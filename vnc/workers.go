// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vnc

import (
	"log/slog"
	"net"

	"github.com/bureau-foundation/deskshare/lib/config"
	"github.com/bureau-foundation/deskshare/stream"
)

// Workers returns the worker factories for a desktop_sharing
// configuration. ready, when non-nil, is passed to every Viewer.
func Workers(desktop config.DesktopSharingConfig, logger *slog.Logger, ready func(net.Addr)) stream.Workers {
	return stream.Workers{
		Server: func(options stream.ServerOptions) stream.Worker {
			return &Server{
				Address: desktop.ServerAddress,
				Options: options,
				Logger:  logger.With("worker", "server"),
			}
		},
		Viewer: func(remote stream.Identity, options stream.ViewerOptions) stream.Worker {
			return &Viewer{
				Listen:  desktop.ViewerListen,
				Remote:  remote,
				Options: options,
				Logger:  logger.With("worker", "viewer"),
				Ready:   ready,
			}
		},
	}
}
