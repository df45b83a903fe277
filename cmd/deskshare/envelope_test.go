// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/pion/sdp/v3"

	"github.com/bureau-foundation/deskshare/stream"
	"github.com/bureau-foundation/deskshare/transport"
)

func testMedia(t *testing.T) *sdp.MediaDescription {
	t.Helper()
	path, err := transport.ParsePath("msrp://127.0.0.1:2855/abc;tcp")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	return stream.BuildMedia(path, stream.RolePassive, []string{stream.ContentTypeRFB}, stream.MediaSendRecv)
}

func TestDescriptionCarriesIdentity(t *testing.T) {
	local := stream.Identity{URI: "sip:alice@example.org", DisplayName: "Alice"}
	description, err := newDescription(local, "127.0.0.1", testMedia(t))
	if err != nil {
		t.Fatalf("newDescription: %v", err)
	}

	var buffer bytes.Buffer
	if err := writeDescription(&buffer, description); err != nil {
		t.Fatalf("writeDescription: %v", err)
	}
	if !strings.HasSuffix(buffer.String(), "\r\n\r\n") {
		t.Errorf("description does not end with a blank line: %q", buffer.String())
	}

	parsed, err := readDescription(bufio.NewReader(&buffer))
	if err != nil {
		t.Fatalf("readDescription: %v", err)
	}
	if got := identityOf(parsed); got != local {
		t.Errorf("identity = %+v, want %+v", got, local)
	}
	path, acceptTypes, err := stream.ParseMedia(parsed.MediaDescriptions[0])
	if err != nil {
		t.Fatalf("ParseMedia: %v", err)
	}
	if got, want := path.String(), "msrp://127.0.0.1:2855/abc;tcp"; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	if len(acceptTypes) != 1 || acceptTypes[0] != stream.ContentTypeRFB {
		t.Errorf("accept types = %v, want [%s]", acceptTypes, stream.ContentTypeRFB)
	}
}

func TestDescriptionWithoutIdentity(t *testing.T) {
	description, err := newDescription(stream.Identity{}, "127.0.0.1", testMedia(t))
	if err != nil {
		t.Fatalf("newDescription: %v", err)
	}
	if description.URI != nil || description.SessionInformation != nil {
		t.Errorf("empty identity produced u=%v i=%v", description.URI, description.SessionInformation)
	}
	if got := identityOf(description); got != (stream.Identity{}) {
		t.Errorf("identity = %+v, want empty", got)
	}
}

func TestReadDescriptionStopsAtBlankLine(t *testing.T) {
	first, err := newDescription(stream.Identity{URI: "sip:alice@example.org"}, "127.0.0.1", testMedia(t))
	if err != nil {
		t.Fatalf("newDescription: %v", err)
	}
	second, err := newDescription(stream.Identity{URI: "sip:bob@example.org"}, "127.0.0.1", testMedia(t))
	if err != nil {
		t.Fatalf("newDescription: %v", err)
	}

	var buffer bytes.Buffer
	buffer.WriteString("\n\n")
	for _, description := range []*sdp.SessionDescription{first, second} {
		if err := writeDescription(&buffer, description); err != nil {
			t.Fatalf("writeDescription: %v", err)
		}
	}

	reader := bufio.NewReader(&buffer)
	for _, want := range []string{"sip:alice@example.org", "sip:bob@example.org"} {
		parsed, err := readDescription(reader)
		if err != nil {
			t.Fatalf("readDescription: %v", err)
		}
		if got := identityOf(parsed).URI; got != want {
			t.Errorf("URI = %q, want %q", got, want)
		}
	}
}

func TestReadDescriptionErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"only blank lines", "\n\r\n"},
		{"not sdp", "hello world\n\n"},
		{"no media", "v=0\r\no=- 1 1 IN IP4 127.0.0.1\r\ns=deskshare\r\nt=0 0\r\n\r\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := readDescription(bufio.NewReader(strings.NewReader(test.input))); err == nil {
				t.Errorf("readDescription(%q) succeeded", test.input)
			}
		})
	}
}
