// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// IsExpectedCloseError reports whether err only says the other end
// went away. It matches io.EOF; net.ErrClosed, which transport.ErrClosed
// wraps when a desktop socket is read after Close; io.ErrClosedPipe from
// a torn-down net.Pipe or io.Pipe; and EPIPE or ECONNRESET, which a peer
// that closes the whole connection instead of half-closing leaves on the
// surviving side. Bridge loops treat these as a normal end of copying.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
