// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a DesktopStream returns matches one of these
// with errors.Is.
var (
	// ErrConfiguration covers account, relay and credential problems.
	ErrConfiguration = errors.New("stream configuration error")

	// ErrNegotiation covers unusable remote media descriptions.
	ErrNegotiation = errors.New("stream negotiation error")

	// ErrTransportEstablish covers transport preparation and
	// completion failures.
	ErrTransportEstablish = errors.New("stream transport error")

	// ErrWorker covers worker startup and worker failures.
	ErrWorker = errors.New("stream worker error")

	// ErrInvalidState is returned when a call does not fit the
	// stream's current state.
	ErrInvalidState = errors.New("stream in wrong state")
)

// Failure contexts, naming the phase a failure occurred in.
const (
	ContextInitialize     = "initialize"
	ContextSDPNegotiation = "sdp_negotiation"
	ContextStart          = "start"
	ContextWorker         = "worker"
)

// Error is a stream failure. It matches both its Kind and its cause
// with errors.Is.
type Error struct {
	// Context is one of the Context* constants.
	Context string

	// Kind is one of the Err* sentinels.
	Kind error

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s: %v", e.Context, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Context, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func newError(phase string, kind error, err error) *Error {
	return &Error{Context: phase, Kind: kind, Err: err}
}

// reason renders err for FailureData. It falls back to the dynamic type
// when the message is empty.
func reason(err error) string {
	if message := err.Error(); message != "" {
		return message
	}
	return fmt.Sprintf("%T", err)
}
