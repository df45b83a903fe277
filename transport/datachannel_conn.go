// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"
	"sync"

	"go.uber.org/multierr"
)

const (
	// maxDataChannelMessage bounds each message written to a data
	// channel. Larger writes are split; 16 KiB is the size every
	// WebRTC implementation accepts.
	maxDataChannelMessage = 16 << 10

	// dataChannelReadBuffer must hold the largest message the peer may
	// send. Detached channels fail reads into smaller buffers with
	// io.ErrShortBuffer.
	dataChannelReadBuffer = 64 << 10
)

// DataChannelStream presents a detached, message-oriented data channel
// as a byte stream. Message boundaries are not preserved: a message
// larger than the caller's buffer is returned across several Reads.
// Read has a single caller.
type DataChannelStream struct {
	channel io.ReadWriteCloser
	release func() error

	buffer  []byte
	pending []byte

	closeOnce sync.Once
	closeErr  error
}

// Compile-time interface check.
var _ io.ReadWriteCloser = (*DataChannelStream)(nil)

// NewDataChannelStream wraps channel. release, when non-nil, runs after
// the channel is closed and tears down what owns it (the
// PeerConnection).
func NewDataChannelStream(channel io.ReadWriteCloser, release func() error) *DataChannelStream {
	return &DataChannelStream{
		channel: channel,
		release: release,
		buffer:  make([]byte, dataChannelReadBuffer),
	}
}

func (s *DataChannelStream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		n, err := s.channel.Read(s.buffer)
		if n == 0 {
			if err == nil {
				return 0, nil
			}
			return 0, err
		}
		s.pending = s.buffer[:n]
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Write sends p as one or more messages.
func (s *DataChannelStream) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		size := min(len(p), maxDataChannelMessage)
		n, err := s.channel.Write(p[:size])
		written += n
		if err != nil {
			return written, err
		}
		p = p[size:]
	}
	return written, nil
}

// Close closes the channel and then runs release. Later calls return
// the first call's result.
func (s *DataChannelStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.channel.Close()
		if s.release != nil {
			s.closeErr = multierr.Append(s.closeErr, s.release())
		}
	})
	return s.closeErr
}
