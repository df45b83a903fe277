// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"fmt"
	"strings"

	"github.com/pion/sdp/v3"

	"github.com/bureau-foundation/deskshare/transport"
)

// Negotiation attribute names.
const (
	attributePath        = "path"
	attributeSetup       = "setup"
	attributeAcceptTypes = "accept-types"
)

// fallbackMediaPort is advertised when the local path has no port,
// which is the case for connectors.
const fallbackMediaPort = 12345

// BuildMedia renders the local negotiation attributes as an
// application media line. Attributes appear in the order path,
// direction (only when not sendrecv), accept-types, setup.
func BuildMedia(path transport.Path, role Role, acceptTypes []string, direction string) *sdp.MediaDescription {
	port := fallbackMediaPort
	protos := []string{"TCP", "MSRP"}
	if last, ok := path.Last(); ok {
		if last.Port != 0 {
			port = last.Port
		}
		if last.UseTLS {
			protos = []string{"TCP", "TLS", "MSRP"}
		}
	}

	attributes := []sdp.Attribute{sdp.NewAttribute(attributePath, path.String())}
	if direction != "" && direction != MediaSendRecv {
		attributes = append(attributes, sdp.NewPropertyAttribute(direction))
	}
	attributes = append(attributes,
		sdp.NewAttribute(attributeAcceptTypes, strings.Join(acceptTypes, " ")),
		sdp.NewAttribute(attributeSetup, string(role)),
	)

	return &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:   "application",
			Port:    sdp.RangedPort{Value: port},
			Protos:  protos,
			Formats: []string{"*"},
		},
		Attributes: attributes,
	}
}

// ParseMedia extracts the remote path and accept-types from a media
// line. A missing or malformed path is an ErrNegotiation.
func ParseMedia(media *sdp.MediaDescription) (transport.Path, []string, error) {
	if media == nil {
		return nil, nil, fmt.Errorf("%w: no media description", ErrNegotiation)
	}
	text, ok := media.Attribute(attributePath)
	if !ok {
		return nil, nil, fmt.Errorf("%w: remote media has no %q attribute", ErrNegotiation, attributePath)
	}
	path, err := transport.ParsePath(text)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNegotiation, err)
	}

	var acceptTypes []string
	if types, ok := media.Attribute(attributeAcceptTypes); ok {
		acceptTypes = strings.Fields(types)
	}
	return path, acceptTypes, nil
}

// remoteSetup returns the setup attribute of media, or "" when absent.
func remoteSetup(media *sdp.MediaDescription) string {
	value, _ := media.Attribute(attributeSetup)
	return value
}

// mediaAt returns the media line at index.
func mediaAt(description *sdp.SessionDescription, index int) (*sdp.MediaDescription, error) {
	if description == nil {
		return nil, fmt.Errorf("%w: no session description", ErrNegotiation)
	}
	if index < 0 || index >= len(description.MediaDescriptions) {
		return nil, fmt.Errorf("%w: media index %d out of range (%d media)", ErrNegotiation, index, len(description.MediaDescriptions))
	}
	return description.MediaDescriptions[index], nil
}

// containsMIMEType reports whether types admits want. Entries may be
// "*" or a "type/*" wildcard. Comparison ignores case.
func containsMIMEType(types []string, want string) bool {
	want = strings.ToLower(want)
	wantMajor, _, _ := strings.Cut(want, "/")
	for _, candidate := range types {
		candidate = strings.ToLower(candidate)
		if candidate == "*" || candidate == want {
			return true
		}
		if major, ok := strings.CutSuffix(candidate, "/*"); ok && major == wantMajor {
			return true
		}
	}
	return false
}
