// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Signaler = (*MemorySignaler)(nil)

// MemorySignaler is an in-process Signaler for tests. Two establishers
// sharing one MemorySignaler can connect without any network
// signaling.
type MemorySignaler struct {
	mu       sync.Mutex
	sequence uint64
	offers   map[string]storedSignal // key: "offerer|target"
	answers  map[string]storedSignal // key: "offerer|target"
	lastSeen map[string]uint64       // key: "<store>:<key>"
}

type storedSignal struct {
	message  SignalMessage
	sequence uint64
}

// NewMemorySignaler creates a new in-process signaler.
func NewMemorySignaler() *MemorySignaler {
	return &MemorySignaler{
		offers:   make(map[string]storedSignal),
		answers:  make(map[string]storedSignal),
		lastSeen: make(map[string]uint64),
	}
}

func (s *MemorySignaler) PublishOffer(_ context.Context, fromSession, toSession, sdp string) error {
	key, err := signalKey(fromSession, toSession)
	if err != nil {
		return err
	}
	s.store(s.offers, key, fromSession, sdp)
	return nil
}

func (s *MemorySignaler) PublishAnswer(_ context.Context, offererSession, fromSession, sdp string) error {
	key, err := signalKey(offererSession, fromSession)
	if err != nil {
		return err
	}
	s.store(s.answers, key, fromSession, sdp)
	return nil
}

func (s *MemorySignaler) PollOffers(_ context.Context, session string) ([]SignalMessage, error) {
	return s.poll("offers", s.offers, func(_, target string) bool { return target == session }), nil
}

func (s *MemorySignaler) PollAnswers(_ context.Context, session string) ([]SignalMessage, error) {
	return s.poll("answers", s.answers, func(offerer, _ string) bool { return offerer == session }), nil
}

func (s *MemorySignaler) store(store map[string]storedSignal, key, peerSession, sdp string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence++
	store[key] = storedSignal{
		message: SignalMessage{
			PeerSession: peerSession,
			SDP:         sdp,
			Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		},
		sequence: s.sequence,
	}
}

// poll returns unseen messages whose key matches, oldest first.
func (s *MemorySignaler) poll(storeLabel string, store map[string]storedSignal, match func(offerer, target string) bool) []SignalMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []storedSignal
	for key, signal := range store {
		offerer, target, ok := splitSignalKey(key)
		if !ok || !match(offerer, target) {
			continue
		}
		seenKey := storeLabel + ":" + key
		if s.lastSeen[seenKey] >= signal.sequence {
			continue
		}
		s.lastSeen[seenKey] = signal.sequence
		found = append(found, signal)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].sequence < found[j].sequence })
	messages := make([]SignalMessage, len(found))
	for index, signal := range found {
		messages[index] = signal.message
	}
	return messages
}
