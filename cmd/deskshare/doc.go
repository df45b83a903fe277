// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// deskshare runs one side of a desktop-sharing session.
//
// There is no signaling server. The two sides exchange session
// descriptions by hand: "deskshare view" prints an offer, the peer
// feeds it to "deskshare share", which prints the answer to feed back
// to the viewer. Each description is SDP text ending at the first blank
// line or at end of input.
//
// The viewing side is active: it connects to the sharing side and
// exposes the remote desktop on desktop_sharing.viewer_listen, launching
// desktop_sharing.client_command against it. The sharing side is
// passive: it accepts the connection and bridges it to the VNC server at
// desktop_sharing.server_address.
//
// With transport.kind "webrtc" the chunk connection runs over a WebRTC
// data channel. Its own offer/answer is exchanged through files in
// --signal-dir, which both sides must share.
//
// When metrics.listen is set, Prometheus metrics are served on
// /metrics at that address.
package main
