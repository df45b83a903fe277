// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"net"
	"slices"
	"strconv"

	"github.com/pion/webrtc/v4"
)

// Default TURN ports for relays located by domain alone.
const (
	defaultTURNPort    = 3478
	defaultTURNTLSPort = 5349
)

// ICEConfig holds ICE server configuration for WebRTC PeerConnections.
type ICEConfig struct {
	// Servers is the list of ICE servers (STUN + TURN) to use during
	// candidate gathering.
	Servers []webrtc.ICEServer

	// RelayOnly restricts candidates to TURN relays.
	RelayOnly bool
}

// ICEConfigFromSTUN returns a config that gathers server-reflexive
// candidates from the given STUN URLs. An empty list yields host
// candidates only, which is sufficient for same-machine and same-LAN
// use.
func ICEConfigFromSTUN(urls []string) ICEConfig {
	if len(urls) == 0 {
		return ICEConfig{}
	}
	return ICEConfig{Servers: []webrtc.ICEServer{{URLs: slices.Clone(urls)}}}
}

// ICEConfigFromRelay maps relay settings onto a TURN server. The relay
// host defaults to the domain and the port to the standard TURN port
// for the chosen security. TLS relays are reached over turns/TCP,
// plain relays over turn/UDP. A nil relay yields an empty config.
func ICEConfigFromRelay(relay *RelaySettings) ICEConfig {
	if relay == nil {
		return ICEConfig{}
	}

	host := relay.Host
	if host == "" {
		host = relay.Domain
	}
	port := relay.Port
	scheme, protocol := "turn", "udp"
	if relay.UseTLS {
		scheme, protocol = "turns", "tcp"
	}
	if port == 0 {
		port = defaultTURNPort
		if relay.UseTLS {
			port = defaultTURNTLSPort
		}
	}

	return ICEConfig{
		Servers: []webrtc.ICEServer{{
			URLs:       []string{scheme + ":" + net.JoinHostPort(host, strconv.Itoa(port)) + "?transport=" + protocol},
			Username:   relay.Username,
			Credential: relay.Password,
		}},
		RelayOnly: true,
	}
}

// withRelay returns c extended by the relay's TURN server. The base
// servers are kept so STUN still works for the far side.
func (c ICEConfig) withRelay(relay *RelaySettings) ICEConfig {
	if relay == nil {
		return c
	}
	turn := ICEConfigFromRelay(relay)
	return ICEConfig{
		Servers:   append(slices.Clone(c.Servers), turn.Servers...),
		RelayOnly: true,
	}
}

// configuration renders c as a pion configuration.
func (c ICEConfig) configuration() webrtc.Configuration {
	configuration := webrtc.Configuration{ICEServers: c.Servers}
	if c.RelayOnly {
		configuration.ICETransportPolicy = webrtc.ICETransportPolicyRelay
	}
	return configuration
}
