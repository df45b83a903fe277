// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"

	"github.com/pion/sdp/v3"
)

// Direction is which side of the session placed the offer.
type Direction int

const (
	// Outgoing streams are offered by the local side.
	Outgoing Direction = iota

	// Incoming streams are offered by the remote side.
	Incoming
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	default:
		return "unknown"
	}
}

// Role is the connection setup role. The zero value means undecided.
type Role string

const (
	// RoleActive connects and views the remote desktop.
	RoleActive Role = "active"

	// RolePassive accepts and serves the local desktop.
	RolePassive Role = "passive"
)

// Media direction attributes. Desktop streams are always sendrecv.
const (
	MediaSendRecv = "sendrecv"
	MediaSendOnly = "sendonly"
	MediaRecvOnly = "recvonly"
	MediaInactive = "inactive"
)

// ContentTypeRFB is the only content type a desktop stream carries.
const ContentTypeRFB = "application/x-rfb"

// MediaType is reported by DesktopStream.Type.
const MediaType = "desktop-sharing"

// Identity names a party to the session.
type Identity struct {
	URI         string
	DisplayName string
}

func (i Identity) String() string {
	if i.DisplayName == "" {
		return "<" + i.URI + ">"
	}
	return i.DisplayName + " <" + i.URI + ">"
}

// Session is the part of the session container a stream reads.
type Session interface {
	RemoteIdentity() Identity
}

// MediaStream is one media line managed by a session container.
type MediaStream interface {
	// Type names the kind of stream.
	Type() string

	// ValidateIncoming reports whether the media at index of an
	// incoming offer is acceptable, pinning the local role if so.
	ValidateIncoming(remote *sdp.SessionDescription, index int) bool

	// Initialize prepares the transport and the local media
	// description.
	Initialize(ctx context.Context, session Session, direction Direction) error

	// LocalMedia returns the media description built by Initialize.
	LocalMedia() *sdp.MediaDescription

	// Start completes the transport toward the path in remote's media
	// at index and starts the stream.
	Start(ctx context.Context, local, remote *sdp.SessionDescription, index int) error

	// ValidateUpdate reports whether a re-offer is acceptable.
	ValidateUpdate(remote *sdp.SessionDescription, index int) bool

	// Update applies an accepted re-offer.
	Update(local, remote *sdp.SessionDescription, index int) error

	HoldSupported() bool
	Hold()
	Unhold()

	// End tears the stream down.
	End()
}
