// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

// RoleNegotiator decides the local setup role and checks the remote
// one. Once a role is pinned it never changes. Not safe for concurrent
// use; DesktopStream guards it with its own lock.
type RoleNegotiator struct {
	role Role
}

// NewRoleNegotiator returns a negotiator with role pinned, or
// undecided when role is empty.
func NewRoleNegotiator(role Role) *RoleNegotiator {
	return &RoleNegotiator{role: role}
}

// Role returns the pinned role, or "" when undecided.
func (n *RoleNegotiator) Role() Role {
	return n.role
}

// DecideInitialRole pins and returns the role for a stream about to be
// initialized: the already pinned role if any, otherwise active for
// outgoing streams and passive for incoming ones.
func (n *RoleNegotiator) DecideInitialRole(direction Direction) Role {
	if n.role == "" {
		if direction == Outgoing {
			n.role = RoleActive
		} else {
			n.role = RolePassive
		}
	}
	return n.role
}

// ValidateRemote checks the remote setup attribute against the local
// role. An empty remoteSetup stands for an absent attribute, which
// means active. The roles must be complementary; on success the local
// role is pinned to the complement. Anything else, including actpass
// and holdconn, is rejected and leaves the role untouched.
func (n *RoleNegotiator) ValidateRemote(remoteSetup string) (Role, bool) {
	if remoteSetup == "" {
		remoteSetup = string(RoleActive)
	}
	switch Role(remoteSetup) {
	case RoleActive:
		if n.role == RolePassive || n.role == "" {
			n.role = RolePassive
			return n.role, true
		}
	case RolePassive:
		if n.role == RoleActive || n.role == "" {
			n.role = RoleActive
			return n.role, true
		}
	}
	return n.role, false
}
