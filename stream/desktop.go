// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/sdp/v3"
	"go.uber.org/multierr"

	"github.com/bureau-foundation/deskshare/lib/config"
	"github.com/bureau-foundation/deskshare/lib/notify"
	"github.com/bureau-foundation/deskshare/transport"
)

// Compile-time interface check.
var _ MediaStream = (*DesktopStream)(nil)

// State is a DesktopStream lifecycle state.
type State int

const (
	StateCreated State = iota
	StateInitializing
	StateInitialized
	StateStarting
	StateRunning
	StateEnding
	StateEnded
	StateFailed
)

var stateNames = [...]string{
	StateCreated:      "created",
	StateInitializing: "initializing",
	StateInitialized:  "initialized",
	StateStarting:     "starting",
	StateRunning:      "running",
	StateEnding:       "ending",
	StateEnded:        "ended",
	StateFailed:       "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// connectionState is nil, pendingConnection or liveConnection. The
// stream holds at most one transport handle at a time.
type connectionState interface {
	isConnectionState()
}

type pendingConnection struct {
	pending transport.Pending
}

type liveConnection struct {
	conn   *transport.Conn
	socket *Socket
}

func (pendingConnection) isConnectionState() {}
func (liveConnection) isConnectionState()    {}

// Options configures a DesktopStream.
type Options struct {
	// Config supplies the account, transport and desktop-sharing
	// sections. Required.
	Config *config.Config

	// Establisher creates chunk connections. Required.
	Establisher transport.Establisher

	// Workers creates the server and viewer workers. Both factories
	// are required.
	Workers Workers

	// Notifications receives lifecycle notifications. Nil uses a
	// private center.
	Notifications *notify.Center

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Role pins the setup role. Empty lets negotiation decide.
	Role Role
}

// DesktopStream is a desktop-sharing media stream. All methods are
// safe for concurrent use. The lock guards fields only; it is never
// held across I/O or while posting notifications.
type DesktopStream struct {
	logger        *slog.Logger
	notifications *notify.Center
	workers       Workers
	desktop       config.DesktopSharingConfig
	paths         *PathEstablisher
	localIdentity Identity
	acceptTypes   []string
	direction     string

	mu             sync.Mutex
	state          State
	roles          *RoleNegotiator
	remoteIdentity Identity
	localMedia     *sdp.MediaDescription
	connection     connectionState
	worker         *task
}

// NewDesktopStream creates a stream in the Created state.
func NewDesktopStream(options Options) (*DesktopStream, error) {
	if options.Config == nil {
		return nil, fmt.Errorf("%w: no configuration", ErrConfiguration)
	}
	if options.Establisher == nil {
		return nil, fmt.Errorf("%w: no transport establisher", ErrConfiguration)
	}
	if options.Workers.Server == nil || options.Workers.Viewer == nil {
		return nil, fmt.Errorf("%w: server and viewer worker factories are required", ErrConfiguration)
	}
	switch options.Role {
	case "", RoleActive, RolePassive:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrConfiguration, options.Role)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifications := options.Notifications
	if notifications == nil {
		notifications = notify.NewCenter(nil)
	}

	account := options.Config.Account
	return &DesktopStream{
		logger:        logger,
		notifications: notifications,
		workers:       options.Workers,
		desktop:       options.Config.DesktopSharing,
		paths:         NewPathEstablisher(options.Establisher, account, options.Config.Transport),
		localIdentity: Identity{URI: account.URI(), DisplayName: account.DisplayName},
		acceptTypes:   []string{ContentTypeRFB},
		direction:     MediaSendRecv,
		roles:         NewRoleNegotiator(options.Role),
	}, nil
}

// Type returns "desktop-sharing".
func (s *DesktopStream) Type() string { return MediaType }

// State returns the lifecycle state.
func (s *DesktopStream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Role returns the setup role, or "" while undecided.
func (s *DesktopStream) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roles.Role()
}

// LocalIdentity returns the account identity.
func (s *DesktopStream) LocalIdentity() Identity { return s.localIdentity }

// RemoteIdentity returns the peer identity recorded by Initialize.
func (s *DesktopStream) RemoteIdentity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteIdentity
}

// LocalMedia returns the media description built by Initialize, or nil
// before that.
func (s *DesktopStream) LocalMedia() *sdp.MediaDescription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localMedia
}

func (s *DesktopStream) ValidateIncoming(remote *sdp.SessionDescription, index int) bool {
	media, err := mediaAt(remote, index)
	if err != nil {
		s.logger.Warn("rejecting incoming desktop stream", "error", err)
		return false
	}
	setup := remoteSetup(media)

	s.mu.Lock()
	role, ok := s.roles.ValidateRemote(setup)
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("rejecting incoming desktop stream",
			"remote_setup", setup,
			"local_role", string(role),
		)
	}
	return ok
}

func (s *DesktopStream) Initialize(ctx context.Context, session Session, direction Direction) error {
	s.mu.Lock()
	if s.state != StateCreated {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: Initialize called in state %s", ErrInvalidState, state)
	}
	s.state = StateInitializing
	role := s.roles.DecideInitialRole(direction)
	s.mu.Unlock()

	pending, path, err := s.paths.Prepare(ctx, direction)
	if err != nil {
		return s.fail(ContextInitialize, err)
	}
	media := BuildMedia(path, role, s.acceptTypes, s.direction)
	remoteIdentity := session.RemoteIdentity()

	s.mu.Lock()
	s.connection = pendingConnection{pending: pending}
	s.localMedia = media
	s.remoteIdentity = remoteIdentity
	s.state = StateInitialized
	s.mu.Unlock()

	s.logger.Info("desktop stream initialized",
		"direction", direction.String(),
		"role", string(role),
		"local_path", path.String(),
		"remote", remoteIdentity.String(),
	)
	s.notifications.Post(NotificationDidInitialize, s, nil)
	return nil
}

func (s *DesktopStream) Start(ctx context.Context, local, remote *sdp.SessionDescription, index int) error {
	s.mu.Lock()
	if s.state != StateInitialized {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: Start called in state %s", ErrInvalidState, state)
	}
	current, ok := s.connection.(pendingConnection)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: Start called without a prepared transport", ErrInvalidState)
	}
	s.state = StateStarting
	role := s.roles.Role()
	remoteIdentity := s.remoteIdentity
	s.mu.Unlock()

	media, err := mediaAt(remote, index)
	if err != nil {
		return s.fail(ContextSDPNegotiation, err)
	}
	remotePath, acceptTypes, err := ParseMedia(media)
	if err != nil {
		return s.fail(ContextSDPNegotiation, err)
	}
	if !containsMIMEType(acceptTypes, ContentTypeRFB) {
		s.logger.Warn("remote does not list the desktop content type",
			"accept_types", acceptTypes,
			"want", ContentTypeRFB,
		)
	}

	conn, err := s.paths.Complete(ctx, current.pending, remotePath)
	if err != nil {
		return s.fail(ContextStart, err)
	}
	socket := NewSocket(conn)

	s.mu.Lock()
	if pending, still := s.connection.(pendingConnection); !still || pending != current || s.state != StateStarting {
		s.mu.Unlock()
		socket.Close()
		return s.fail(ContextStart, fmt.Errorf("%w: stream ended while the transport was completing", ErrTransportEstablish))
	}
	s.connection = liveConnection{conn: conn, socket: socket}
	worker := newTask(s.newWorker(role, remoteIdentity), socket, s.workerExited)
	s.worker = worker
	s.state = StateRunning
	s.mu.Unlock()

	s.logger.Info("desktop stream started",
		"role", string(role),
		"local_path", conn.LocalPath().String(),
		"remote_path", remotePath.String(),
	)
	s.notifications.Post(NotificationDidStart, s, nil)
	worker.start()
	return nil
}

// newWorker picks the worker for role: the passive side serves its
// desktop, the active side views the remote one.
func (s *DesktopStream) newWorker(role Role, remote Identity) Worker {
	if role == RolePassive {
		return s.workers.Server(ServerOptions{Options: s.desktop.ServerOptions})
	}
	return s.workers.Viewer(remote, ViewerOptions{
		ColorDepth:    s.desktop.ColorDepth,
		ClientCommand: s.desktop.ClientCommand,
	})
}

// workerExited folds the worker's result back into the lifecycle. A
// clean exit ends the stream; a failure is reported and the stream is
// left for the session to end. Exits caused by End are ignored.
func (s *DesktopStream) workerExited(worker *task, err error) {
	if worker.Killed() {
		return
	}
	s.mu.Lock()
	current := s.worker == worker
	s.mu.Unlock()
	if !current {
		return
	}

	if err == nil {
		s.logger.Info("desktop worker finished")
		go s.End()
		return
	}
	s.logger.Warn("desktop worker failed", "error", err)
	s.fail(ContextWorker, err)
}

func (s *DesktopStream) ValidateUpdate(*sdp.SessionDescription, int) bool { return true }

// Update accepts re-offers without changing anything; the role and
// path of a running stream are fixed.
func (s *DesktopStream) Update(*sdp.SessionDescription, *sdp.SessionDescription, int) error {
	return nil
}

func (s *DesktopStream) HoldSupported() bool { return false }
func (s *DesktopStream) Hold()               {}
func (s *DesktopStream) Unhold()             {}

// End releases the worker and transport. It does nothing when the
// stream holds no transport, so it may be called any number of times
// and from any goroutine. StreamDidEnd is posted even if releasing
// fails.
func (s *DesktopStream) End() {
	s.mu.Lock()
	if s.connection == nil {
		s.mu.Unlock()
		return
	}
	connection := s.connection
	worker := s.worker
	s.connection = nil
	s.worker = nil
	s.state = StateEnding
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = StateEnded
		s.mu.Unlock()
		s.logger.Info("desktop stream ended")
		s.notifications.Post(NotificationDidEnd, s, nil)
	}()
	s.notifications.Post(NotificationWillEnd, s, nil)

	if worker != nil {
		worker.Kill()
	}

	var errs error
	switch held := connection.(type) {
	case liveConnection:
		if err := held.socket.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("closing transport: %w", err))
		}
	case pendingConnection:
		if err := s.paths.Cleanup(held.pending); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	for _, err := range multierr.Errors(errs) {
		s.logger.Warn("releasing desktop stream resource failed", "error", err)
	}
}

// fail records a failure in phase, posts StreamDidFail and returns
// the error to hand back to the caller. A stream that is already
// ending keeps its state and posts nothing: the failure is the
// teardown's own doing.
func (s *DesktopStream) fail(phase string, err error) error {
	failure := newError(phase, kindOf(phase, err), err)

	s.mu.Lock()
	ending := s.state == StateEnding || s.state == StateEnded
	if !ending {
		s.state = StateFailed
	}
	s.mu.Unlock()

	if ending {
		s.logger.Debug("desktop stream ended during operation", "context", phase, "error", err)
		return failure
	}
	s.logger.Error("desktop stream failed", "context", phase, "error", err)
	s.notifications.Post(NotificationDidFail, s, FailureData{
		Context: phase,
		Reason:  reason(err),
		Err:     failure,
	})
	return failure
}

// kindOf returns the sentinel err already carries, or the default for
// phase.
func kindOf(phase string, err error) error {
	for _, kind := range []error{ErrConfiguration, ErrNegotiation, ErrTransportEstablish, ErrWorker} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	switch phase {
	case ContextSDPNegotiation:
		return ErrNegotiation
	case ContextWorker:
		return ErrWorker
	default:
		return ErrTransportEstablish
	}
}
