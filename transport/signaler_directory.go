// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bureau-foundation/deskshare/lib/codec"
)

// Compile-time interface check.
var _ Signaler = (*DirectorySignaler)(nil)

// DirectorySignaler exchanges signals as files in a shared directory.
// Each signal is one CBOR file named "<kind>.<offerer>|<target>" and
// is removed once polled, so every signal is delivered at most once.
type DirectorySignaler struct {
	directory string
}

const (
	signalKindOffer  = "offer"
	signalKindAnswer = "answer"
)

// NewDirectorySignaler creates the directory if needed.
func NewDirectorySignaler(directory string) (*DirectorySignaler, error) {
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return nil, fmt.Errorf("creating signaling directory: %w", err)
	}
	return &DirectorySignaler{directory: directory}, nil
}

func (s *DirectorySignaler) PublishOffer(_ context.Context, fromSession, toSession, sdp string) error {
	return s.publish(signalKindOffer, fromSession, toSession, fromSession, sdp)
}

func (s *DirectorySignaler) PublishAnswer(_ context.Context, offererSession, fromSession, sdp string) error {
	return s.publish(signalKindAnswer, offererSession, fromSession, fromSession, sdp)
}

func (s *DirectorySignaler) PollOffers(_ context.Context, session string) ([]SignalMessage, error) {
	return s.poll(signalKindOffer, func(_, target string) bool { return target == session })
}

func (s *DirectorySignaler) PollAnswers(_ context.Context, session string) ([]SignalMessage, error) {
	return s.poll(signalKindAnswer, func(offerer, _ string) bool { return offerer == session })
}

// publish writes to a temporary name and renames it into place so a
// concurrent poll never sees a partial file.
func (s *DirectorySignaler) publish(kind, offererSession, targetSession, peerSession, sdp string) error {
	key, err := signalKey(offererSession, targetSession)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(SignalMessage{
		PeerSession: peerSession,
		SDP:         sdp,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}

	temporary, err := os.CreateTemp(s.directory, ".pending-*")
	if err != nil {
		return fmt.Errorf("publishing %s: %w", kind, err)
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(temporary.Name())
		return fmt.Errorf("publishing %s: %w", kind, err)
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporary.Name())
		return fmt.Errorf("publishing %s: %w", kind, err)
	}
	if err := os.Rename(temporary.Name(), filepath.Join(s.directory, kind+"."+key)); err != nil {
		os.Remove(temporary.Name())
		return fmt.Errorf("publishing %s: %w", kind, err)
	}
	return nil
}

func (s *DirectorySignaler) poll(kind string, match func(offerer, target string) bool) ([]SignalMessage, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("reading signaling directory: %w", err)
	}

	type found struct {
		message  SignalMessage
		modified time.Time
	}
	var signals []found
	for _, entry := range entries {
		key, ok := strings.CutPrefix(entry.Name(), kind+".")
		if !ok || entry.IsDir() {
			continue
		}
		offerer, target, ok := splitSignalKey(key)
		if !ok || !match(offerer, target) {
			continue
		}

		name := filepath.Join(s.directory, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		data, err := os.ReadFile(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("consuming %s: %w", entry.Name(), err)
		}

		var message SignalMessage
		if err := codec.Unmarshal(data, &message); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", entry.Name(), err)
		}
		signals = append(signals, found{message: message, modified: info.ModTime()})
	}

	sort.Slice(signals, func(i, j int) bool { return signals[i].modified.Before(signals[j].modified) })
	messages := make([]SignalMessage, len(signals))
	for index, signal := range signals {
		messages[index] = signal.message
	}
	return messages, nil
}
