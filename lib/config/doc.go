// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for deskshare.
//
// Configuration is loaded from a single file specified by either the
// DESKSHARE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file search.
//
// The file carries four concerns:
//
//   - account: the local identity (id, display name, password) and its
//     NAT traversal policy: whether to use a relay for inbound and
//     outbound streams and, optionally, an explicit relay.
//   - transport: which establisher to use (tcp or webrtc), the
//     transport security (tcp or tls), the local address, TLS
//     credentials and STUN servers.
//   - desktop_sharing: how the embedded remote-desktop workers run
//     (local VNC server address, viewer command, color depth).
//   - logging and metrics.
//
// Variable expansion (${HOME}, ${VAR:-default}) is performed on path
// fields after loading. No other environment variables override
// config values.
//
// This package depends on no other deskshare packages.
package config
