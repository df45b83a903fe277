// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"io"
	"sync/atomic"
)

// Worker runs the remote-desktop protocol over a stream. Run returns
// nil when the session finished normally. It must return promptly once
// ctx is cancelled or the stream is closed.
type Worker interface {
	Run(ctx context.Context, stream io.ReadWriteCloser) error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, stream io.ReadWriteCloser) error

func (f WorkerFunc) Run(ctx context.Context, stream io.ReadWriteCloser) error {
	return f(ctx, stream)
}

// ServerOptions configures the worker that serves the local desktop.
type ServerOptions struct {
	// Options are rendering options for the desktop server.
	Options string
}

// ViewerOptions configures the worker that views the remote desktop.
type ViewerOptions struct {
	// ColorDepth is the requested bits per pixel.
	ColorDepth int

	// ClientCommand is the viewer executable.
	ClientCommand string
}

// Workers creates the worker for each role. The passive side serves,
// the active side views.
type Workers struct {
	Server func(options ServerOptions) Worker
	Viewer func(remote Identity, options ViewerOptions) Worker
}

// task is a running worker. onExit runs on the worker's goroutine
// after Run returns, unless the task was killed before it started.
type task struct {
	worker Worker
	stream io.ReadWriteCloser
	onExit func(*task, error)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	kills  atomic.Int32
}

func newTask(worker Worker, stream io.ReadWriteCloser, onExit func(*task, error)) *task {
	ctx, cancel := context.WithCancel(context.Background())
	return &task{
		worker: worker,
		stream: stream,
		onExit: onExit,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// start launches the worker goroutine. A task killed before start
// never runs.
func (t *task) start() {
	if t.Killed() {
		close(t.done)
		return
	}
	go func() {
		err := t.worker.Run(t.ctx, t.stream)
		t.cancel()
		close(t.done)
		t.onExit(t, err)
	}()
}

// Kill cancels the worker's context. The exit that follows is marked
// as killed so it is not mistaken for the worker finishing.
func (t *task) Kill() {
	t.kills.Add(1)
	t.cancel()
}

// Killed reports whether Kill was called.
func (t *task) Killed() bool {
	return t.kills.Load() > 0
}

// Done is closed once the worker has returned.
func (t *task) Done() <-chan struct{} {
	return t.done
}
