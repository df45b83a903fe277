// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vnc provides the remote-desktop workers a desktop-sharing
// stream runs once its transport is live.
//
// Neither worker speaks RFB itself. [Server] runs on the passive side
// and bridges the stream to a VNC server already listening locally.
// That server is started and configured by the host, not by this
// package; the configured server options are only logged.
// [Viewer] runs on the active side: it listens on a local address,
// optionally launches a viewer program pointed at that address, and
// bridges the first connection it accepts to the stream.
//
// [Workers] builds the stream.Workers factories from the
// desktop_sharing configuration.
package vnc
