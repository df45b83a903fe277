// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"strings"
	"testing"
)

func TestURIString(t *testing.T) {
	tests := []struct {
		name string
		uri  URI
		want string
	}{
		{
			name: "plain",
			uri:  URI{Host: "10.0.0.5", Port: 2855, SessionID: "abc", Transport: ParamTCP},
			want: "msrp://10.0.0.5:2855/abc;tcp",
		},
		{
			name: "tls",
			uri:  URI{Host: "relay.example.org", Port: 2855, SessionID: "s1", UseTLS: true, Transport: ParamTCP},
			want: "msrps://relay.example.org:2855/s1;tcp",
		},
		{
			name: "ipv6",
			uri:  URI{Host: "::1", Port: 7000, SessionID: "s2", Transport: ParamWebRTC},
			want: "msrp://[::1]:7000/s2;webrtc",
		},
		{
			name: "default transport",
			uri:  URI{Host: "h", Port: 1, SessionID: "s"},
			want: "msrp://h:1/s;tcp",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.uri.String(); got != test.want {
				t.Errorf("String() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestParseURIRoundTrip(t *testing.T) {
	for _, text := range []string{
		"msrp://10.0.0.5:2855/abc;tcp",
		"msrps://relay.example.org:2855/s1;tcp",
		"msrp://[::1]:7000/s2;webrtc",
		"msrp://10.0.0.5:0/connector;tcp",
	} {
		uri, err := ParseURI(text)
		if err != nil {
			t.Fatalf("ParseURI(%q): %v", text, err)
		}
		if got := uri.String(); got != text {
			t.Errorf("round trip of %q = %q", text, got)
		}
	}
}

func TestParseURIRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"no scheme", "10.0.0.5:2855/abc;tcp", "missing scheme"},
		{"bad scheme", "sip://10.0.0.5:2855/abc;tcp", "unknown scheme"},
		{"no session", "msrp://10.0.0.5:2855", "missing session id"},
		{"empty session", "msrp://10.0.0.5:2855/;tcp", "empty session id"},
		{"no port", "msrp://10.0.0.5/abc;tcp", "missing port"},
		{"bad port", "msrp://10.0.0.5:99999/abc;tcp", "invalid port"},
		{"no transport", "msrp://10.0.0.5:2855/abc", "missing transport"},
		{"bad transport", "msrp://10.0.0.5:2855/abc;udp", "unknown transport"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseURI(test.text)
			if err == nil {
				t.Fatalf("ParseURI(%q) succeeded, want error", test.text)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %q, want substring %q", err, test.want)
			}
		})
	}
}

func TestParsePathPreservesOrder(t *testing.T) {
	text := "msrps://relay.example.org:2855/r1;tcp msrp://10.0.0.5:2855/abc;tcp"
	path, err := ParsePath(text)
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	if len(path) != 2 {
		t.Fatalf("len(path) = %d, want 2", len(path))
	}
	if path[0].Host != "relay.example.org" || !path[0].UseTLS {
		t.Errorf("path[0] = %+v, want TLS relay hop", path[0])
	}
	last, ok := path.Last()
	if !ok || last.SessionID != "abc" {
		t.Errorf("Last() = %+v, %v, want session abc", last, ok)
	}
	if got := path.String(); got != text {
		t.Errorf("String() = %q, want %q", got, text)
	}
}

func TestParsePathEmpty(t *testing.T) {
	if _, err := ParsePath("   "); err == nil {
		t.Error("ParsePath of blank text succeeded, want error")
	}
	if _, ok := Path(nil).Last(); ok {
		t.Error("Last() of empty path reported ok")
	}
}
