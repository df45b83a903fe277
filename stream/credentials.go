// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/deskshare/lib/config"
)

// routeLookupAddress is used only to select the outbound interface; no
// packet is sent to it.
const routeLookupAddress = "192.0.2.1:9"

// resolveLocalIP returns the configured local IP, or the address of
// the interface carrying the default route, or loopback when there is
// no route.
func resolveLocalIP(transportConfig config.TransportConfig) string {
	if transportConfig.LocalIP != "" {
		return transportConfig.LocalIP
	}
	conn, err := net.Dial("udp", routeLookupAddress)
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// ephemeralCertificate is generated once per process and shared by
// every stream that has no configured certificate.
var ephemeralCertificate = sync.OnceValues(func() (*tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, fmt.Errorf("generating serial: %w", err)
	}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "deskshare"},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(30 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("creating certificate: %w", err)
	}
	return &tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
})

// loadCertificate returns the configured TLS credentials, or the
// process-wide ephemeral certificate when none are configured.
func loadCertificate(transportConfig config.TransportConfig) (*tls.Certificate, error) {
	if transportConfig.Certificate == "" {
		certificate, err := ephemeralCertificate()
		if err != nil {
			return nil, fmt.Errorf("ephemeral TLS certificate: %w", err)
		}
		return certificate, nil
	}
	certificate, err := tls.LoadX509KeyPair(transportConfig.Certificate, transportConfig.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("loading TLS certificate %s: %w", transportConfig.Certificate, err)
	}
	return &certificate, nil
}
