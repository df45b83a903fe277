// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrClosed is returned by Conn operations after Shutdown. It
	// matches net.ErrClosed so byte-stream bridges treat it as a normal
	// termination.
	ErrClosed = fmt.Errorf("transport: connection closed: %w", net.ErrClosed)

	// ErrSessionMismatch is returned when the peer bound a connection
	// to a session other than ours, or rejected our bind.
	ErrSessionMismatch = errors.New("transport: session mismatch")

	// ErrRelayUnsupported is returned by establishers that cannot
	// traverse the given relay.
	ErrRelayUnsupported = errors.New("transport: relay not supported")

	// ErrPendingConsumed is returned by Complete on a Pending that was
	// already completed or cleaned up.
	ErrPendingConsumed = errors.New("transport: pending connection already consumed")
)
