// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/pion/sdp/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/deskshare/lib/config"
	"github.com/bureau-foundation/deskshare/lib/notify"
	"github.com/bureau-foundation/deskshare/lib/streammetrics"
	"github.com/bureau-foundation/deskshare/stream"
	"github.com/bureau-foundation/deskshare/transport"
	"github.com/bureau-foundation/deskshare/vnc"
)

type sessionMode int

const (
	// modeView offers an outgoing stream and views the peer's desktop.
	modeView sessionMode = iota
	// modeShare answers an incoming stream and serves this desktop.
	modeShare
)

type sessionOptions struct {
	Config    *config.Config
	Mode      sessionMode
	Role      stream.Role
	SignalDir string

	// Peer is the identity of the viewed peer, known only from flags
	// in view mode. In share mode it comes from the offer.
	Peer stream.Identity

	Input  *bufio.Reader
	Output io.Writer
	Logger *slog.Logger

	// Workers replaces the VNC workers when set.
	Workers *stream.Workers
}

// runSession negotiates one desktop stream and runs it until it ends,
// fails, or ctx is cancelled. The metrics endpoint, when configured,
// lives as long as the session.
func runSession(ctx context.Context, options sessionOptions) error {
	cfg := options.Config
	logger := options.Logger

	center := notify.NewCenter(nil)
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := streammetrics.New(center, registry)
	if err != nil {
		return err
	}
	defer metrics.Close()

	establisher, err := newEstablisher(cfg, options.SignalDir, logger)
	if err != nil {
		return err
	}
	workers := vnc.Workers(cfg.DesktopSharing, logger, nil)
	if options.Workers != nil {
		workers = *options.Workers
	}

	desktop, err := stream.NewDesktopStream(stream.Options{
		Config:        cfg,
		Establisher:   establisher,
		Workers:       workers,
		Notifications: center,
		Logger:        logger.With("stream", stream.MediaType),
		Role:          options.Role,
	})
	if err != nil {
		return fmt.Errorf("creating desktop stream: %w", err)
	}

	outcome, err := watchStream(center, desktop)
	if err != nil {
		return err
	}
	defer outcome.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Listen != "" {
		listener, err := net.Listen("tcp", cfg.Metrics.Listen)
		if err != nil {
			return fmt.Errorf("listening for metrics on %s: %w", cfg.Metrics.Listen, err)
		}
		logger.Info("serving metrics", "address", listener.Addr().String())
		group.Go(func() error {
			return serveMetrics(ctx, listener, registry, logger)
		})
	}

	group.Go(func() error {
		defer cancel()
		session := &session{
			options: options,
			desktop: desktop,
			outcome: outcome,
		}
		return session.run(ctx)
	})

	return group.Wait()
}

type session struct {
	options sessionOptions
	desktop *stream.DesktopStream
	outcome *streamOutcome
}

func (s *session) run(ctx context.Context) error {
	var err error
	if s.options.Mode == modeView {
		err = s.offer(ctx)
	} else {
		err = s.answer(ctx)
	}
	if err != nil {
		s.desktop.End()
		return err
	}
	return s.wait(ctx)
}

// offer initializes an outgoing stream, prints the offer and starts
// the stream with the answer read back.
func (s *session) offer(ctx context.Context) error {
	if err := s.desktop.Initialize(ctx, peerSession{identity: s.options.Peer}, stream.Outgoing); err != nil {
		return fmt.Errorf("initializing stream: %w", err)
	}
	local, err := s.localDescription()
	if err != nil {
		return err
	}
	if err := writeDescription(s.options.Output, local); err != nil {
		return err
	}

	s.options.Logger.Info("offer written, waiting for the answer")
	remote, err := readDescriptionContext(ctx, s.options.Input)
	if err != nil {
		return err
	}
	if !s.desktop.ValidateIncoming(remote, 0) {
		return errors.New("answer does not carry a compatible desktop-sharing stream")
	}
	if err := s.desktop.Start(ctx, local, remote, 0); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	return nil
}

// answer reads an offer, initializes an incoming stream for it, prints
// the answer and starts the stream.
func (s *session) answer(ctx context.Context) error {
	s.options.Logger.Info("waiting for the offer")
	remote, err := readDescriptionContext(ctx, s.options.Input)
	if err != nil {
		return err
	}
	if !s.desktop.ValidateIncoming(remote, 0) {
		return errors.New("offer does not carry a compatible desktop-sharing stream")
	}
	if err := s.desktop.Initialize(ctx, peerSession{identity: identityOf(remote)}, stream.Incoming); err != nil {
		return fmt.Errorf("initializing stream: %w", err)
	}
	local, err := s.localDescription()
	if err != nil {
		return err
	}
	if err := writeDescription(s.options.Output, local); err != nil {
		return err
	}
	if err := s.desktop.Start(ctx, local, remote, 0); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	return nil
}

// localDescription wraps the stream's media, with the path host as the
// origin address.
func (s *session) localDescription() (*sdp.SessionDescription, error) {
	media := s.desktop.LocalMedia()
	path, _, err := stream.ParseMedia(media)
	if err != nil {
		return nil, fmt.Errorf("reading local media: %w", err)
	}
	host := "0.0.0.0"
	if last, ok := path.Last(); ok {
		host = last.Host
	}
	return newDescription(s.desktop.LocalIdentity(), host, media)
}

// wait blocks until the stream ends or fails, or ctx is cancelled. A
// failed or interrupted stream is ended before returning.
func (s *session) wait(ctx context.Context) error {
	select {
	case <-s.outcome.ended:
		s.options.Logger.Info("desktop stream ended")
		return nil
	case failure := <-s.outcome.failed:
		s.desktop.End()
		return fmt.Errorf("desktop stream failed during %s: %w", failure.Context, failure.Err)
	case <-ctx.Done():
		s.options.Logger.Info("ending desktop stream", "reason", context.Cause(ctx))
		s.desktop.End()
		return ctx.Err()
	}
}

// streamOutcome collects the terminal notifications of one stream.
type streamOutcome struct {
	center        *notify.Center
	subscriptions []notify.Subscription
	ended         chan struct{}
	failed        chan stream.FailureData
}

func watchStream(center *notify.Center, desktop *stream.DesktopStream) (*streamOutcome, error) {
	outcome := &streamOutcome{
		center: center,
		ended:  make(chan struct{}, 1),
		failed: make(chan stream.FailureData, 1),
	}
	subscriptions, err := center.SubscribeAll(func(notification notify.Notification) {
		if notification.Sender != desktop {
			return
		}
		switch notification.Name {
		case stream.NotificationDidEnd:
			select {
			case outcome.ended <- struct{}{}:
			default:
			}
		case stream.NotificationDidFail:
			data, _ := notification.Data.(stream.FailureData)
			select {
			case outcome.failed <- data:
			default:
			}
		}
	}, stream.NotificationDidEnd, stream.NotificationDidFail)
	if err != nil {
		return nil, fmt.Errorf("watching desktop stream: %w", err)
	}
	outcome.subscriptions = subscriptions
	return outcome, nil
}

func (o *streamOutcome) close() {
	for _, subscription := range o.subscriptions {
		o.center.Unsubscribe(subscription)
	}
}

// newEstablisher selects the chunk transport for transport.kind.
func newEstablisher(cfg *config.Config, signalDir string, logger *slog.Logger) (transport.Establisher, error) {
	switch cfg.Transport.Kind {
	case config.KindTCP:
		return transport.NewTCPEstablisher(logger.With("transport", config.KindTCP)), nil
	case config.KindWebRTC:
		if signalDir == "" {
			return nil, errors.New("--signal-dir is required with transport.kind webrtc")
		}
		signaler, err := transport.NewDirectorySignaler(signalDir)
		if err != nil {
			return nil, fmt.Errorf("creating signaler: %w", err)
		}
		iceConfig := transport.ICEConfigFromSTUN(cfg.Transport.STUNServers)
		return transport.NewWebRTCEstablisher(signaler, iceConfig, logger.With("transport", config.KindWebRTC)), nil
	default:
		return nil, fmt.Errorf("unknown transport.kind %q", cfg.Transport.Kind)
	}
}

// readDescriptionContext reads a description from input, giving up when
// ctx is cancelled. The read itself cannot be interrupted and finishes
// in the background.
func readDescriptionContext(ctx context.Context, input *bufio.Reader) (*sdp.SessionDescription, error) {
	type result struct {
		description *sdp.SessionDescription
		err         error
	}
	done := make(chan result, 1)
	go func() {
		description, err := readDescription(input)
		done <- result{description, err}
	}()
	select {
	case r := <-done:
		return r.description, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
