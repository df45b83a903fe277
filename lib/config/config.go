// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Transport security values for TransportConfig.Security and
// RelayConfig.Transport.
const (
	SecurityTCP = "tcp"
	SecurityTLS = "tls"
)

// Establisher kinds for TransportConfig.Kind.
const (
	KindTCP    = "tcp"
	KindWebRTC = "webrtc"
)

// Config is the master configuration for deskshare.
type Config struct {
	Account        AccountConfig        `yaml:"account"`
	Transport      TransportConfig      `yaml:"transport"`
	DesktopSharing DesktopSharingConfig `yaml:"desktop_sharing"`
	Logging        LoggingConfig        `yaml:"logging"`
	Metrics        MetricsConfig        `yaml:"metrics"`
}

// AccountConfig describes the local identity.
type AccountConfig struct {
	// ID is the account address in user@domain form. The user part
	// and domain are the relay credentials' username and realm.
	ID string `yaml:"id"`

	// DisplayName is advertised alongside the account URI.
	DisplayName string `yaml:"display_name"`

	// Password authenticates the account against the relay.
	Password string `yaml:"password"`

	NATTraversal NATTraversalConfig `yaml:"nat_traversal"`
}

// NATTraversalConfig selects when streams go through a relay.
type NATTraversalConfig struct {
	// UseRelayForInbound routes streams this account answers through
	// a relay.
	UseRelayForInbound bool `yaml:"use_relay_for_inbound"`

	// UseRelayForOutbound routes streams this account offers through
	// a relay.
	UseRelayForOutbound bool `yaml:"use_relay_for_outbound"`

	// Relay is an explicit relay. When nil and a relay is required,
	// the relay is located from the account domain and TLS is used.
	Relay *RelayConfig `yaml:"relay,omitempty"`
}

// RelayConfig is an explicitly configured relay server.
type RelayConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Transport is "tls" or "tcp".
	Transport string `yaml:"transport"`
}

// TransportConfig configures the chunk transport.
type TransportConfig struct {
	// Kind selects the establisher: "tcp" for direct TCP/TLS, "webrtc"
	// for data channels with ICE (and TURN when a relay is used).
	Kind string `yaml:"kind"`

	// Security is the transport security used for direct streams:
	// "tls" or "tcp".
	Security string `yaml:"security"`

	// LocalIP is the address advertised in the local path. Empty means
	// the address of the default outbound interface.
	LocalIP string `yaml:"local_ip"`

	// LocalPort is the listening port for accepted streams. Zero picks
	// an ephemeral port.
	LocalPort int `yaml:"local_port"`

	// Certificate and PrivateKey are PEM files used for TLS. When both
	// are empty an ephemeral self-signed certificate is generated.
	Certificate string `yaml:"certificate"`
	PrivateKey  string `yaml:"private_key"`

	// STUNServers are added to the ICE configuration of the webrtc
	// establisher (e.g. "stun:stun.example.org:3478").
	STUNServers []string `yaml:"stun_servers"`
}

// DesktopSharingConfig configures the embedded remote-desktop workers.
type DesktopSharingConfig struct {
	// ColorDepth is passed to the viewer (8, 16, 24 or 32).
	ColorDepth int `yaml:"color_depth"`

	// ClientCommand is the viewer executable launched on the active
	// side. Empty means the stream is only exposed on ViewerListen.
	ClientCommand string `yaml:"client_command"`

	// ServerAddress is the local VNC server the passive side serves.
	ServerAddress string `yaml:"server_address"`

	// ViewerListen is where the active side exposes the remote desktop
	// for the viewer to connect to.
	ViewerListen string `yaml:"viewer_listen"`

	// ServerOptions are the rendering options the local VNC server is
	// expected to run with. The server is configured by the host; the
	// serving worker only logs these so they show up next to the
	// session.
	ServerOptions string `yaml:"server_options"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address of the /metrics HTTP endpoint. Empty
	// disables it.
	Listen string `yaml:"listen"`
}

// Default returns the default configuration. The account section has
// no usable default; the config file must provide it.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Kind:     KindTCP,
			Security: SecurityTLS,
		},
		DesktopSharing: DesktopSharingConfig{
			ColorDepth:    8,
			ClientCommand: "vncviewer",
			ServerAddress: "127.0.0.1:5900",
			ViewerListen:  "127.0.0.1:0",
			ServerOptions: "-speeds modem",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the DESKSHARE_CONFIG environment
// variable. There is no fallback when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("DESKSHARE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("DESKSHARE_CONFIG environment variable not set; " +
			"set it to the path of your deskshare.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path on top of
// Default and validates it.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Transport.Certificate = expandVars(c.Transport.Certificate, vars)
	c.Transport.PrivateKey = expandVars(c.Transport.PrivateKey, vars)
	c.DesktopSharing.ClientCommand = expandVars(c.DesktopSharing.ClientCommand, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if _, _, err := c.Account.Credentials(); err != nil {
		errs = append(errs, err)
	}

	if relay := c.Account.NATTraversal.Relay; relay != nil {
		if relay.Host == "" {
			errs = append(errs, fmt.Errorf("account.nat_traversal.relay.host is required"))
		}
		if relay.Port < 0 || relay.Port > 65535 {
			errs = append(errs, fmt.Errorf("account.nat_traversal.relay.port out of range: %d", relay.Port))
		}
		if !slices.Contains([]string{SecurityTCP, SecurityTLS}, relay.Transport) {
			errs = append(errs, fmt.Errorf("account.nat_traversal.relay.transport must be %q or %q", SecurityTCP, SecurityTLS))
		}
	}

	if !slices.Contains([]string{KindTCP, KindWebRTC}, c.Transport.Kind) {
		errs = append(errs, fmt.Errorf("transport.kind must be %q or %q", KindTCP, KindWebRTC))
	}
	if !slices.Contains([]string{SecurityTCP, SecurityTLS}, c.Transport.Security) {
		errs = append(errs, fmt.Errorf("transport.security must be %q or %q", SecurityTCP, SecurityTLS))
	}
	if c.Transport.LocalPort < 0 || c.Transport.LocalPort > 65535 {
		errs = append(errs, fmt.Errorf("transport.local_port out of range: %d", c.Transport.LocalPort))
	}
	if (c.Transport.Certificate == "") != (c.Transport.PrivateKey == "") {
		errs = append(errs, fmt.Errorf("transport.certificate and transport.private_key must be set together"))
	}

	if !slices.Contains([]int{8, 16, 24, 32}, c.DesktopSharing.ColorDepth) {
		errs = append(errs, fmt.Errorf("desktop_sharing.color_depth must be 8, 16, 24 or 32"))
	}
	if c.DesktopSharing.ServerAddress == "" {
		errs = append(errs, fmt.Errorf("desktop_sharing.server_address is required"))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Credentials splits the account id into the relay username and
// domain.
func (a AccountConfig) Credentials() (username, domain string, err error) {
	username, domain, found := strings.Cut(a.ID, "@")
	if !found || username == "" || domain == "" {
		return "", "", fmt.Errorf("account.id must be user@domain, got %q", a.ID)
	}
	return username, domain, nil
}

// URI returns the account's SIP URI.
func (a AccountConfig) URI() string {
	return "sip:" + a.ID
}

// SlogLevel maps Level to a slog level. Unknown values map to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
