// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Transport parameters carried in the URI. The value names how the
// hop is reached, not what rides on it.
const (
	ParamTCP    = "tcp"
	ParamWebRTC = "webrtc"
)

const (
	schemePlain  = "msrp"
	schemeSecure = "msrps"
)

// URI names one hop of a chunk path, in the form
// msrp://host:port/session;tcp. The msrps scheme marks a TLS hop.
type URI struct {
	Host      string `cbor:"host"`
	Port      int    `cbor:"port"`
	SessionID string `cbor:"session"`
	UseTLS    bool   `cbor:"tls,omitempty"`
	Transport string `cbor:"transport"`
}

// String renders the URI in its textual form.
func (u URI) String() string {
	scheme := schemePlain
	if u.UseTLS {
		scheme = schemeSecure
	}
	transport := u.Transport
	if transport == "" {
		transport = ParamTCP
	}
	return scheme + "://" + net.JoinHostPort(u.Host, strconv.Itoa(u.Port)) + "/" + u.SessionID + ";" + transport
}

// Address returns host:port for dialing.
func (u URI) Address() string {
	return net.JoinHostPort(u.Host, strconv.Itoa(u.Port))
}

// ParseURI parses the textual form produced by URI.String.
func ParseURI(text string) (URI, error) {
	var uri URI

	scheme, rest, found := strings.Cut(text, "://")
	if !found {
		return URI{}, fmt.Errorf("parsing URI %q: missing scheme", text)
	}
	switch scheme {
	case schemePlain:
	case schemeSecure:
		uri.UseTLS = true
	default:
		return URI{}, fmt.Errorf("parsing URI %q: unknown scheme %q", text, scheme)
	}

	authority, resource, found := strings.Cut(rest, "/")
	if !found {
		return URI{}, fmt.Errorf("parsing URI %q: missing session id", text)
	}
	host, portText, err := net.SplitHostPort(authority)
	if err != nil {
		return URI{}, fmt.Errorf("parsing URI %q: %w", text, err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port < 0 || port > 65535 {
		return URI{}, fmt.Errorf("parsing URI %q: invalid port %q", text, portText)
	}
	if host == "" {
		return URI{}, fmt.Errorf("parsing URI %q: empty host", text)
	}
	uri.Host = host
	uri.Port = port

	session, transport, found := strings.Cut(resource, ";")
	if !found {
		return URI{}, fmt.Errorf("parsing URI %q: missing transport parameter", text)
	}
	if session == "" {
		return URI{}, fmt.Errorf("parsing URI %q: empty session id", text)
	}
	switch transport {
	case ParamTCP, ParamWebRTC:
	default:
		return URI{}, fmt.Errorf("parsing URI %q: unknown transport %q", text, transport)
	}
	uri.SessionID = session
	uri.Transport = transport
	return uri, nil
}

// Path is an ordered list of hops. The first entry is the next hop
// from the sender's point of view and the last entry is the far
// endpoint.
type Path []URI

// Last returns the final hop.
func (p Path) Last() (URI, bool) {
	if len(p) == 0 {
		return URI{}, false
	}
	return p[len(p)-1], true
}

// Strings returns the textual form of each hop, in order.
func (p Path) Strings() []string {
	texts := make([]string, len(p))
	for index, uri := range p {
		texts[index] = uri.String()
	}
	return texts
}

// String joins the hops with single spaces.
func (p Path) String() string {
	return strings.Join(p.Strings(), " ")
}

// ParsePath parses space-separated URIs. An empty text is an error.
func ParsePath(text string) (Path, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, fmt.Errorf("parsing path: empty")
	}
	path := make(Path, 0, len(fields))
	for _, field := range fields {
		uri, err := ParseURI(field)
		if err != nil {
			return nil, err
		}
		path = append(path, uri)
	}
	return path, nil
}
