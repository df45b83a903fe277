// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/pion/sdp/v3"

	"github.com/bureau-foundation/deskshare/stream"
)

const sessionName = "deskshare"

// peerSession is the stream.Session view of the other side.
type peerSession struct {
	identity stream.Identity
}

func (p peerSession) RemoteIdentity() stream.Identity { return p.identity }

// newDescription wraps media in a session description that carries
// the local identity: the account URI in u= and the display name in
// i=.
func newDescription(local stream.Identity, host string, media *sdp.MediaDescription) (*sdp.SessionDescription, error) {
	var id [8]byte
	if _, err := rand.Read(id[:]); err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}
	description := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      binary.BigEndian.Uint64(id[:]) >> 1,
			SessionVersion: 1,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: host,
		},
		SessionName: sdp.SessionName(sessionName),
		TimeDescriptions: []sdp.TimeDescription{
			{Timing: sdp.Timing{StartTime: 0, StopTime: 0}},
		},
		MediaDescriptions: []*sdp.MediaDescription{media},
	}
	if local.URI != "" {
		uri, err := url.Parse(local.URI)
		if err != nil {
			return nil, fmt.Errorf("parsing account URI %q: %w", local.URI, err)
		}
		description.URI = uri
	}
	if local.DisplayName != "" {
		information := sdp.Information(local.DisplayName)
		description.SessionInformation = &information
	}
	return description, nil
}

// identityOf extracts the peer identity newDescription embedded.
func identityOf(description *sdp.SessionDescription) stream.Identity {
	var identity stream.Identity
	if description.URI != nil {
		identity.URI = description.URI.String()
	}
	if description.SessionInformation != nil {
		identity.DisplayName = string(*description.SessionInformation)
	}
	return identity
}

// writeDescription writes description followed by the blank line that
// terminates it.
func writeDescription(w io.Writer, description *sdp.SessionDescription) error {
	text, err := description.Marshal()
	if err != nil {
		return fmt.Errorf("encoding session description: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\r\n", text); err != nil {
		return fmt.Errorf("writing session description: %w", err)
	}
	return nil
}

// readDescription reads one session description: lines up to the first
// blank line, or to end of input. Leading blank lines are skipped.
func readDescription(reader *bufio.Reader) (*sdp.SessionDescription, error) {
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" && len(lines) > 0 {
			break
		}
		if line != "" {
			lines = append(lines, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading session description: %w", err)
		}
	}
	if len(lines) == 0 {
		return nil, errors.New("reading session description: no input")
	}

	var description sdp.SessionDescription
	if err := description.Unmarshal([]byte(strings.Join(lines, "\r\n") + "\r\n")); err != nil {
		return nil, fmt.Errorf("parsing session description: %w", err)
	}
	if len(description.MediaDescriptions) == 0 {
		return nil, errors.New("session description has no media")
	}
	return &description, nil
}
