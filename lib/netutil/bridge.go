// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"io"
)

// bridgeCopyResult holds the outcome of one direction of a bidirectional copy.
type bridgeCopyResult struct {
	bytesCopied int64
	err         error
}

// BridgeStats reports how many bytes a bridge moved in each direction.
type BridgeStats struct {
	// AToB is the number of bytes read from a and written to b.
	AToB int64

	// BToA is the number of bytes read from b and written to a.
	BToA int64
}

// Bridge copies data bidirectionally between a and b.
//
// Returns when either direction finishes. Both streams are closed before
// returning to unblock the surviving goroutine. Returns the error from the
// direction that terminated first, or nil if termination was due to normal
// connection closure (EOF, closed stream, broken pipe, connection reset).
func Bridge(a, b io.ReadWriteCloser) (BridgeStats, error) {
	aToB := make(chan bridgeCopyResult, 1)
	bToA := make(chan bridgeCopyResult, 1)

	go func() {
		bytesCopied, err := io.Copy(b, a)
		aToB <- bridgeCopyResult{bytesCopied, err}
	}()

	go func() {
		bytesCopied, err := io.Copy(a, b)
		bToA <- bridgeCopyResult{bytesCopied, err}
	}()

	// Wait for one direction to finish, then close both to unblock the other.
	var first, forward, backward bridgeCopyResult
	select {
	case forward = <-aToB:
		first = forward
		a.Close()
		b.Close()
		backward = <-bToA
	case backward = <-bToA:
		first = backward
		a.Close()
		b.Close()
		forward = <-aToB
	}

	stats := BridgeStats{AToB: forward.bytesCopied, BToA: backward.bytesCopied}
	if first.err != nil && !IsExpectedCloseError(first.err) {
		return stats, first.err
	}
	return stats, nil
}
