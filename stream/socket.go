// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"fmt"
	"io"
	"sync"

	"github.com/bureau-foundation/deskshare/transport"
)

// Socket presents a chunk connection as a byte stream for workers.
//
// Read returns SEND payloads in order, buffering whatever does not fit
// in the caller's slice, and acknowledges each chunk whose
// Failure-Report asks for it. Read has a single caller. Write sends each
// call as one chunk with Failure-Report "no"; concurrent writers are
// serialized.
type Socket struct {
	conn *transport.Conn

	// pending holds payload bytes not yet returned by Read.
	pending []byte

	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Compile-time interface check.
var _ io.ReadWriteCloser = (*Socket)(nil)

// NewSocket wraps conn.
func NewSocket(conn *transport.Conn) *Socket {
	return &Socket{conn: conn}
}

func (s *Socket) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.pending) == 0 {
		chunk, err := s.conn.ReadChunk()
		if err != nil {
			return 0, err
		}
		if response := transport.MakeResponse(chunk, transport.StatusOK, "OK"); response != nil {
			if err := s.conn.WriteChunk(response); err != nil {
				return 0, fmt.Errorf("acknowledging chunk %s: %w", chunk.TransactionID, err)
			}
		}
		if chunk.Method != transport.MethodSEND {
			continue
		}
		s.pending = chunk.Data
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Write sends p as one chunk and returns len(p). An empty p sends
// nothing.
func (s *Socket) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	chunk := s.conn.MakeChunk(ContentTypeRFB, p)
	chunk.FailureReport = transport.ReportNo
	if err := s.conn.WriteChunk(chunk); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close shuts the connection down without waiting for in-flight
// writes. Later calls return the first call's result.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Shutdown(false)
	})
	return s.closeErr
}
