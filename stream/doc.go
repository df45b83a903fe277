// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package stream implements the desktop-sharing media stream: one
// media line of an offer/answer session that tunnels a remote-desktop
// protocol (RFB) over a chunk transport.
//
// [DesktopStream] implements [MediaStream]. The session container
// drives it through four calls:
//
//   - ValidateIncoming checks the remote setup attribute of an
//     incoming offer and pins the local role.
//   - Initialize decides the role, resolves relay policy, prepares the
//     transport and builds the local media description.
//   - Start parses the remote path, completes the transport and
//     launches the worker.
//   - End tears everything down. It is safe at any point and any
//     number of times.
//
// The active side connects and runs the viewer worker; the passive
// side accepts and runs the server worker. Workers see the chunk
// transport as an ordinary byte stream through [Socket].
//
// Every transition is reported on a [notify.Center]: StreamDidInitialize,
// StreamDidStart, StreamDidFail (with [FailureData]), StreamWillEnd and
// StreamDidEnd. Notifications are posted without holding the stream's
// lock, so observers may query the stream; they must not call back
// into it synchronously.
package stream
