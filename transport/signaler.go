// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"strings"
)

// Signaler exchanges WebRTC session descriptions between the two ends
// of a stream. Ends are identified by the session ids of their paths,
// which both sides learn from the media offer/answer before
// establishment begins.
//
// The signaling model is vanilla ICE: all ICE candidates are gathered
// before the SDP is published, so establishment requires exactly one
// signaling round-trip (offer → answer).
type Signaler interface {
	// PublishOffer publishes a complete SDP offer from session
	// fromSession to session toSession.
	PublishOffer(ctx context.Context, fromSession, toSession, sdp string) error

	// PublishAnswer publishes a complete SDP answer to an offer made
	// by offererSession.
	PublishAnswer(ctx context.Context, offererSession, fromSession, sdp string) error

	// PollOffers returns offers addressed to session that have not
	// been returned before.
	PollOffers(ctx context.Context, session string) ([]SignalMessage, error)

	// PollAnswers returns answers to offers made by session that have
	// not been returned before.
	PollAnswers(ctx context.Context, session string) ([]SignalMessage, error)
}

// SignalMessage is one offer or answer.
type SignalMessage struct {
	// PeerSession is the session id of the other end: the offerer for
	// received offers, the answerer for received answers.
	PeerSession string `cbor:"peer_session"`

	// SDP is the complete session description with all ICE candidates
	// embedded.
	SDP string `cbor:"sdp"`

	// Timestamp is the RFC 3339 creation time.
	Timestamp string `cbor:"timestamp"`
}

// signalingSeparator joins offerer and target in signal keys. Session
// ids must not contain it.
const signalingSeparator = "|"

func signalKey(offererSession, targetSession string) (string, error) {
	for _, session := range []string{offererSession, targetSession} {
		if session == "" || strings.ContainsAny(session, signalingSeparator+"/\\.") {
			return "", fmt.Errorf("invalid signaling session id %q", session)
		}
	}
	return offererSession + signalingSeparator + targetSession, nil
}

// splitSignalKey returns the offerer and target of a signal key.
func splitSignalKey(key string) (offerer, target string, ok bool) {
	return strings.Cut(key, signalingSeparator)
}
