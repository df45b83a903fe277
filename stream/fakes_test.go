// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/sdp/v3"

	"github.com/bureau-foundation/deskshare/lib/config"
	"github.com/bureau-foundation/deskshare/lib/notify"
	"github.com/bureau-foundation/deskshare/lib/testutil"
	"github.com/bureau-foundation/deskshare/transport"
)

// fakeEstablisher hands out pipe-backed connections. The far end of
// every completed connection is delivered on peers.
type fakeEstablisher struct {
	prepareErr  error
	completeErr error

	// entered receives a value when Complete starts; release, when
	// non-nil, holds Complete until closed.
	entered chan struct{}
	release chan struct{}

	peers chan *transport.Conn

	// closes counts closes of the local side of completed connections.
	closes atomic.Int32

	mu       sync.Mutex
	pendings []*fakePending
	relays   []*transport.RelaySettings
	requests []transport.Request
}

func newFakeEstablisher() *fakeEstablisher {
	return &fakeEstablisher{
		entered: make(chan struct{}, 1),
		peers:   make(chan *transport.Conn, 4),
	}
}

func (e *fakeEstablisher) PrepareConnect(ctx context.Context, request transport.Request, relay *transport.RelaySettings) (transport.Pending, transport.Path, error) {
	return e.prepare(request, relay)
}

func (e *fakeEstablisher) PrepareAccept(ctx context.Context, request transport.Request, relay *transport.RelaySettings) (transport.Pending, transport.Path, error) {
	return e.prepare(request, relay)
}

func (e *fakeEstablisher) prepare(request transport.Request, relay *transport.RelaySettings) (transport.Pending, transport.Path, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, request)
	e.relays = append(e.relays, relay)
	if e.prepareErr != nil {
		return nil, nil, e.prepareErr
	}
	path := transport.Path{{
		Host:      request.Host,
		Port:      request.Port,
		SessionID: request.SessionID,
		UseTLS:    request.UseTLS,
		Transport: transport.ParamTCP,
	}}
	pending := &fakePending{establisher: e, localPath: path}
	e.pendings = append(e.pendings, pending)
	return pending, path, nil
}

func (e *fakeEstablisher) lastPending(t *testing.T) *fakePending {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pendings) == 0 {
		t.Fatal("no pending connection was prepared")
	}
	return e.pendings[len(e.pendings)-1]
}

type fakePending struct {
	establisher *fakeEstablisher
	localPath   transport.Path
	completed   atomic.Int32
	cleanups    atomic.Int32
}

func (p *fakePending) Complete(ctx context.Context, remote transport.Path) (*transport.Conn, error) {
	p.completed.Add(1)
	select {
	case p.establisher.entered <- struct{}{}:
	default:
	}
	if p.establisher.release != nil {
		select {
		case <-p.establisher.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.establisher.completeErr != nil {
		return nil, p.establisher.completeErr
	}

	near, far := net.Pipe()
	logger := testutil.Logger()
	p.establisher.peers <- transport.NewConn(far, remote, p.localPath, logger)
	return transport.NewConn(&countingConn{Conn: near, closes: &p.establisher.closes}, p.localPath, remote, logger), nil
}

// countingConn counts Close calls on the stream's side of a pipe.
type countingConn struct {
	net.Conn
	closes *atomic.Int32
}

func (c *countingConn) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

func (p *fakePending) Cleanup() error {
	p.cleanups.Add(1)
	return nil
}

// recorder collects notifications posted on a center.
type recorder struct {
	notifications chan notify.Notification
}

func newRecorder(t *testing.T, center *notify.Center) *recorder {
	t.Helper()
	r := &recorder{notifications: make(chan notify.Notification, 64)}
	if _, err := center.SubscribeAll(func(notification notify.Notification) {
		r.notifications <- notification
	}, Notifications...); err != nil {
		t.Fatalf("SubscribeAll: %v", err)
	}
	return r
}

// next returns the next notification, failing after a timeout.
func (r *recorder) next(t *testing.T) notify.Notification {
	t.Helper()
	return testutil.RequireReceive(t, r.notifications, 5*time.Second, "waiting for notification")
}

// expect consumes notifications and checks their names in order.
func (r *recorder) expect(t *testing.T, names ...string) []notify.Notification {
	t.Helper()
	received := make([]notify.Notification, 0, len(names))
	for _, name := range names {
		notification := r.next(t)
		if notification.Name != name {
			t.Fatalf("notification = %s, want %s", notification.Name, name)
		}
		received = append(received, notification)
	}
	return received
}

// drained returns the names of notifications already posted.
func (r *recorder) drained() []string {
	var names []string
	for {
		select {
		case notification := <-r.notifications:
			names = append(names, notification.Name)
		default:
			return names
		}
	}
}

// workerRecorder builds Workers whose runs are controlled by the test.
type workerRecorder struct {
	run func(ctx context.Context, stream io.ReadWriteCloser) error

	mu      sync.Mutex
	server  []ServerOptions
	viewer  []ViewerOptions
	remotes []Identity
	exited  chan error
}

func newWorkerRecorder(run func(ctx context.Context, stream io.ReadWriteCloser) error) *workerRecorder {
	return &workerRecorder{run: run, exited: make(chan error, 4)}
}

func (w *workerRecorder) workers() Workers {
	return Workers{
		Server: func(options ServerOptions) Worker {
			w.mu.Lock()
			w.server = append(w.server, options)
			w.mu.Unlock()
			return WorkerFunc(w.wrap)
		},
		Viewer: func(remote Identity, options ViewerOptions) Worker {
			w.mu.Lock()
			w.viewer = append(w.viewer, options)
			w.remotes = append(w.remotes, remote)
			w.mu.Unlock()
			return WorkerFunc(w.wrap)
		},
	}
}

func (w *workerRecorder) wrap(ctx context.Context, stream io.ReadWriteCloser) error {
	err := w.run(ctx, stream)
	w.exited <- err
	return err
}

// blockUntilDone runs until the worker is cancelled, then closes the
// stream.
func blockUntilDone(ctx context.Context, stream io.ReadWriteCloser) error {
	<-ctx.Done()
	stream.Close()
	return ctx.Err()
}

type testSession struct {
	remote Identity
}

func (s testSession) RemoteIdentity() Identity { return s.remote }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Account = config.AccountConfig{
		ID:          "alice@example.org",
		DisplayName: "Alice",
		Password:    "secret",
	}
	cfg.Transport.Security = config.SecurityTCP
	cfg.Transport.LocalIP = "127.0.0.1"
	return cfg
}

type streamHarness struct {
	stream      *DesktopStream
	establisher *fakeEstablisher
	workers     *workerRecorder
	events      *recorder
}

func newHarness(t *testing.T, role Role, run func(ctx context.Context, stream io.ReadWriteCloser) error) *streamHarness {
	t.Helper()
	center := notify.NewCenter(nil)
	harness := &streamHarness{
		establisher: newFakeEstablisher(),
		workers:     newWorkerRecorder(run),
		events:      newRecorder(t, center),
	}
	stream, err := NewDesktopStream(Options{
		Config:        testConfig(),
		Establisher:   harness.establisher,
		Workers:       harness.workers.workers(),
		Notifications: center,
		Logger:        testutil.Logger(),
		Role:          role,
	})
	if err != nil {
		t.Fatalf("NewDesktopStream: %v", err)
	}
	t.Cleanup(stream.End)
	harness.stream = stream
	return harness
}

// remoteDescription wraps a media line for the peer at path.
func remoteDescription(media *sdp.MediaDescription) *sdp.SessionDescription {
	return &sdp.SessionDescription{MediaDescriptions: []*sdp.MediaDescription{media}}
}

// peerMedia is what a well-behaved peer in role would answer.
func peerMedia(t *testing.T, role Role) *sdp.MediaDescription {
	t.Helper()
	path, err := transport.ParsePath("msrp://127.0.0.1:2855/peer-session;tcp")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	return BuildMedia(path, role, []string{ContentTypeRFB}, MediaSendRecv)
}

// initializeAndStart brings a harness stream to Running as the
// offering side and returns the peer's end of the transport.
func (h *streamHarness) initializeAndStart(t *testing.T, direction Direction) *transport.Conn {
	t.Helper()
	if err := h.stream.Initialize(t.Context(), testSession{remote: Identity{URI: "sip:bob@example.org", DisplayName: "Bob"}}, direction); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	peerRole := RolePassive
	if h.stream.Role() == RolePassive {
		peerRole = RoleActive
	}
	if err := h.stream.Start(t.Context(), nil, remoteDescription(peerMedia(t, peerRole)), 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	peer := testutil.RequireReceive(t, h.establisher.peers, 5*time.Second, "peer connection")
	t.Cleanup(func() { peer.Shutdown(false) })
	return peer
}

func requireStreamError(t *testing.T, err error, phase string, kind error) {
	t.Helper()
	var streamErr *Error
	if !errors.As(err, &streamErr) {
		t.Fatalf("error = %v (%T), want *Error", err, err)
	}
	if streamErr.Context != phase {
		t.Errorf("Context = %q, want %q", streamErr.Context, phase)
	}
	if !errors.Is(err, kind) {
		t.Errorf("error = %v, want kind %v", err, kind)
	}
}

func newTestCenter() *notify.Center {
	return notify.NewCenter(nil)
}
