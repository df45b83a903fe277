// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
)

// Compile-time interface checks.
var (
	_ Establisher = (*WebRTCEstablisher)(nil)
	_ Pending     = (*webrtcPending)(nil)
)

// dataChannelLabel names the single data channel each stream uses.
const dataChannelLabel = "msrp"

// signalPollInterval is how often Complete polls the signaler for the
// peer's offer or answer.
const signalPollInterval = 250 * time.Millisecond

// signalTimeout is the maximum time to wait for the peer's offer or
// answer.
const signalTimeout = 30 * time.Second

// iceGatherTimeout is the maximum time to wait for ICE candidate gathering
// to complete before publishing the SDP.
const iceGatherTimeout = 15 * time.Second

// channelOpenTimeout is the maximum time from applying the remote
// description to the data channel opening, ICE connectivity included.
const channelOpenTimeout = 30 * time.Second

// errPendingReleased is returned by a Complete interrupted by Cleanup.
var errPendingReleased = errors.New("pending connection released")

// WebRTCEstablisher runs each stream over one ordered, reliable data
// channel on its own PeerConnection. Relay settings become a TURN
// server and restrict ICE to relay candidates, which is how a stream
// traverses NAT when policy requires a relay.
//
// The active side creates the data channel and publishes the offer;
// the passive side answers. Both are keyed by the session ids of the
// two paths, so signaling needs nothing beyond the media
// offer/answer.
type WebRTCEstablisher struct {
	signaler  Signaler
	iceConfig ICEConfig
	logger    *slog.Logger
}

// NewWebRTCEstablisher creates a WebRTC establisher. iceConfig supplies
// the base STUN/TURN servers; relay settings passed to Prepare* are
// added to it per stream.
func NewWebRTCEstablisher(signaler Signaler, iceConfig ICEConfig, logger *slog.Logger) *WebRTCEstablisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebRTCEstablisher{signaler: signaler, iceConfig: iceConfig, logger: logger}
}

func (e *WebRTCEstablisher) PrepareConnect(_ context.Context, request Request, relay *RelaySettings) (Pending, Path, error) {
	return e.prepare(request, relay, true)
}

func (e *WebRTCEstablisher) PrepareAccept(_ context.Context, request Request, relay *RelaySettings) (Pending, Path, error) {
	return e.prepare(request, relay, false)
}

func (e *WebRTCEstablisher) prepare(request Request, relay *RelaySettings, active bool) (Pending, Path, error) {
	if request.SessionID == "" {
		return nil, nil, errors.New("preparing data channel: empty session id")
	}

	pc, err := newPeerConnection(e.iceConfig.withRelay(relay))
	if err != nil {
		return nil, nil, fmt.Errorf("creating PeerConnection: %w", err)
	}

	localPath := Path{{
		Host:      request.Host,
		Port:      request.Port,
		SessionID: request.SessionID,
		UseTLS:    request.UseTLS,
		Transport: ParamWebRTC,
	}}
	pending := &webrtcPending{
		establisher: e,
		connection:  pc,
		localPath:   localPath,
		active:      active,
		released:    make(chan struct{}),
	}

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		e.logger.Debug("ICE state change",
			"session", request.SessionID,
			"state", state.String(),
		)
	})

	e.logger.Debug("data channel prepared",
		"session", request.SessionID,
		"active", active,
		"relay", relay != nil,
	)
	return pending, localPath, nil
}

// webrtcPending owns its PeerConnection until Complete hands it to the
// returned Conn.
type webrtcPending struct {
	establisher *WebRTCEstablisher
	connection  *webrtc.PeerConnection
	localPath   Path
	active      bool
	consumed    atomic.Bool

	mu        sync.Mutex
	handedOff bool
	cleanedUp bool

	released    chan struct{}
	releaseOnce sync.Once
	releaseErr  error
}

func (p *webrtcPending) Complete(ctx context.Context, remote Path) (*Conn, error) {
	if !p.consumed.CompareAndSwap(false, true) {
		return nil, ErrPendingConsumed
	}
	remoteEnd, ok := remote.Last()
	if !ok {
		p.releasePeer()
		return nil, errors.New("connecting: empty remote path")
	}

	var channel *webrtc.DataChannel
	var err error
	if p.active {
		channel, err = p.offer(ctx, remoteEnd.SessionID)
	} else {
		channel, err = p.answer(ctx, remoteEnd.SessionID)
	}
	if err != nil {
		p.releasePeer()
		return nil, err
	}

	raw, err := channel.Detach()
	if err != nil {
		p.releasePeer()
		return nil, fmt.Errorf("detaching data channel: %w", err)
	}

	conn := NewConn(NewDataChannelStream(raw, p.releasePeer), p.localPath, remote, p.establisher.logger)
	if p.active {
		err = bindConnector(ctx, conn)
	} else {
		err = bindAcceptor(ctx, conn, p.localPath)
	}
	if err != nil {
		conn.Shutdown(false)
		return nil, fmt.Errorf("binding data channel: %w", err)
	}

	p.mu.Lock()
	if p.cleanedUp {
		p.mu.Unlock()
		conn.Shutdown(false)
		return nil, errPendingReleased
	}
	p.handedOff = true
	p.mu.Unlock()

	role := "acceptor"
	if p.active {
		role = "connector"
	}
	p.establisher.logger.Info("chunk connection established",
		"role", role,
		"local", p.localPath.String(),
		"remote", remote.String(),
		"transport", ParamWebRTC,
	)
	return conn, nil
}

// offer creates the data channel, publishes the offer and applies the
// answer. It returns once the channel is open.
func (p *webrtcPending) offer(ctx context.Context, remoteSession string) (*webrtc.DataChannel, error) {
	localSession := p.localPath[0].SessionID
	pc := p.connection

	ordered := true
	channel, err := pc.CreateDataChannel(dataChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, fmt.Errorf("creating data channel: %w", err)
	}
	opened := make(chan struct{})
	channel.OnOpen(func() { close(opened) })

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("creating SDP offer: %w", err)
	}
	if err := p.setLocalAndGather(ctx, offer); err != nil {
		return nil, err
	}

	if err := p.establisher.signaler.PublishOffer(ctx, localSession, remoteSession, pc.LocalDescription().SDP); err != nil {
		return nil, fmt.Errorf("publishing SDP offer: %w", err)
	}
	p.establisher.logger.Info("WebRTC offer published", "session", localSession, "peer", remoteSession)

	answerSDP, err := p.waitForSignal(ctx, remoteSession, p.establisher.signaler.PollAnswers)
	if err != nil {
		return nil, fmt.Errorf("waiting for SDP answer from %s: %w", remoteSession, err)
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answerSDP}); err != nil {
		return nil, fmt.Errorf("setting remote description: %w", err)
	}

	if err := p.waitOpen(ctx, opened); err != nil {
		return nil, err
	}
	return channel, nil
}

// answer waits for the peer's offer, publishes the answer and returns
// the data channel the peer opened.
func (p *webrtcPending) answer(ctx context.Context, remoteSession string) (*webrtc.DataChannel, error) {
	localSession := p.localPath[0].SessionID
	pc := p.connection

	channels := make(chan *webrtc.DataChannel, 1)
	pc.OnDataChannel(func(channel *webrtc.DataChannel) {
		if channel.Label() != dataChannelLabel {
			p.establisher.logger.Warn("closing unexpected data channel",
				"session", localSession,
				"label", channel.Label(),
			)
			channel.Close()
			return
		}
		channel.OnOpen(func() {
			select {
			case channels <- channel:
			default:
			}
		})
	})

	offerSDP, err := p.waitForSignal(ctx, remoteSession, p.establisher.signaler.PollOffers)
	if err != nil {
		return nil, fmt.Errorf("waiting for SDP offer from %s: %w", remoteSession, err)
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}); err != nil {
		return nil, fmt.Errorf("setting remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("creating SDP answer: %w", err)
	}
	if err := p.setLocalAndGather(ctx, answer); err != nil {
		return nil, err
	}
	if err := p.establisher.signaler.PublishAnswer(ctx, remoteSession, localSession, pc.LocalDescription().SDP); err != nil {
		return nil, fmt.Errorf("publishing SDP answer: %w", err)
	}
	p.establisher.logger.Info("WebRTC answer published", "session", localSession, "peer", remoteSession)

	timeout := time.NewTimer(channelOpenTimeout)
	defer timeout.Stop()
	select {
	case channel := <-channels:
		return channel, nil
	case <-timeout.C:
		return nil, fmt.Errorf("data channel did not open within %s", channelOpenTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.released:
		return nil, errPendingReleased
	}
}

// setLocalAndGather applies description and waits for ICE gathering
// to complete (vanilla ICE).
func (p *webrtcPending) setLocalAndGather(ctx context.Context, description webrtc.SessionDescription) error {
	gatherComplete := webrtc.GatheringCompletePromise(p.connection)
	if err := p.connection.SetLocalDescription(description); err != nil {
		return fmt.Errorf("setting local description: %w", err)
	}

	timeout := time.NewTimer(iceGatherTimeout)
	defer timeout.Stop()
	select {
	case <-gatherComplete:
		return nil
	case <-timeout.C:
		return fmt.Errorf("ICE gathering timed out after %s", iceGatherTimeout)
	case <-ctx.Done():
		return ctx.Err()
	case <-p.released:
		return errPendingReleased
	}
}

// waitForSignal polls until poll returns a message from peerSession.
func (p *webrtcPending) waitForSignal(ctx context.Context, peerSession string, poll func(context.Context, string) ([]SignalMessage, error)) (string, error) {
	localSession := p.localPath[0].SessionID
	deadline := time.NewTimer(signalTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(signalPollInterval)
	defer ticker.Stop()

	for {
		messages, err := poll(ctx, localSession)
		if err != nil {
			p.establisher.logger.Warn("polling signaler failed", "session", localSession, "error", err)
		}
		for _, message := range messages {
			if message.PeerSession == peerSession {
				return message.SDP, nil
			}
		}

		select {
		case <-deadline.C:
			return "", fmt.Errorf("timed out after %s", signalTimeout)
		case <-ctx.Done():
			return "", ctx.Err()
		case <-p.released:
			return "", errPendingReleased
		case <-ticker.C:
		}
	}
}

func (p *webrtcPending) waitOpen(ctx context.Context, opened <-chan struct{}) error {
	timeout := time.NewTimer(channelOpenTimeout)
	defer timeout.Stop()
	select {
	case <-opened:
		return nil
	case <-timeout.C:
		return fmt.Errorf("data channel did not open within %s", channelOpenTimeout)
	case <-ctx.Done():
		return ctx.Err()
	case <-p.released:
		return errPendingReleased
	}
}

// Cleanup closes the PeerConnection unless Complete already handed it
// to a Conn. It aborts a Complete in progress.
func (p *webrtcPending) Cleanup() error {
	p.consumed.Store(true)

	p.mu.Lock()
	p.cleanedUp = true
	handedOff := p.handedOff
	p.mu.Unlock()

	if handedOff {
		return nil
	}
	return p.releasePeer()
}

func (p *webrtcPending) releasePeer() error {
	p.releaseOnce.Do(func() {
		close(p.released)
		if err := p.connection.Close(); err != nil {
			p.releaseErr = fmt.Errorf("closing PeerConnection: %w", err)
		}
	})
	return p.releaseErr
}

// newPeerConnection creates a pion PeerConnection for config.
func newPeerConnection(config ICEConfig) (*webrtc.PeerConnection, error) {
	// Detached data channels give stream-style Read/Write access.
	// Loopback candidates are needed for same-machine sessions and
	// test environments where loopback is the only interface.
	settingEngine := webrtc.SettingEngine{}
	settingEngine.DetachDataChannels()
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	return api.NewPeerConnection(config.configuration())
}
