// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/deskshare/lib/codec"
)

// Conn is a live chunk connection between two paths. ReadChunk has a
// single caller; WriteChunk may be called concurrently.
type Conn struct {
	rwc     io.ReadWriteCloser
	decoder *codec.Decoder
	logger  *slog.Logger

	localPath  Path
	remotePath Path

	// writeMu serializes frames on the wire. Shutdown(true) takes it
	// to let an in-flight frame finish.
	writeMu sync.Mutex
	encoder *codec.Encoder

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// NewConn wraps a byte stream as a chunk connection. The local and
// remote paths fill the From-Path and To-Path of chunks built by
// MakeChunk.
func NewConn(rwc io.ReadWriteCloser, localPath, remotePath Path, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		rwc:        rwc,
		decoder:    codec.NewDecoder(rwc),
		encoder:    codec.NewEncoder(rwc),
		logger:     logger,
		localPath:  localPath,
		remotePath: remotePath,
		closed:     make(chan struct{}),
	}
}

// LocalPath returns the path chunks are sent from.
func (c *Conn) LocalPath() Path { return c.localPath }

// RemotePath returns the path chunks are sent to.
func (c *Conn) RemotePath() Path { return c.remotePath }

// Done is closed once Shutdown has been called.
func (c *Conn) Done() <-chan struct{} { return c.closed }

// ReadChunk blocks for the next chunk. It returns io.EOF when the peer
// closed the connection cleanly and ErrClosed after Shutdown.
func (c *Conn) ReadChunk() (*Chunk, error) {
	var chunk Chunk
	if err := c.decoder.Decode(&chunk); err != nil {
		if c.isClosed() {
			return nil, ErrClosed
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading chunk: %w", err)
	}
	return &chunk, nil
}

// WriteChunk sends one chunk.
func (c *Conn) WriteChunk(chunk *Chunk) error {
	if c.isClosed() {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.encoder.Encode(chunk); err != nil {
		if c.isClosed() {
			return ErrClosed
		}
		return fmt.Errorf("writing chunk: %w", err)
	}
	return nil
}

// MakeChunk builds a SEND request carrying data as one complete
// message, addressed from the local path to the remote path.
func (c *Conn) MakeChunk(contentType string, data []byte) *Chunk {
	size := int64(len(data))
	return &Chunk{
		Method:        MethodSEND,
		TransactionID: uuid.NewString(),
		MessageID:     uuid.NewString(),
		ToPath:        c.remotePath,
		FromPath:      c.localPath,
		ContentType:   contentType,
		ByteRange:     ByteRange{Start: 1, End: size, Total: size},
		Data:          data,
	}
}

// Shutdown closes the connection. With wait set it first lets an
// in-flight WriteChunk finish; otherwise blocked reads and writes are
// interrupted immediately. Later calls return the first call's result.
func (c *Conn) Shutdown(wait bool) error {
	c.closeOnce.Do(func() {
		close(c.closed)
		if wait {
			c.writeMu.Lock()
			defer c.writeMu.Unlock()
		}
		c.closeErr = c.rwc.Close()
		c.logger.Debug("chunk connection closed",
			"local", c.localPath.String(),
			"remote", c.remotePath.String(),
			"wait", wait,
		)
	})
	return c.closeErr
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
