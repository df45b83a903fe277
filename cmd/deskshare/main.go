// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/deskshare/lib/config"
	"github.com/bureau-foundation/deskshare/lib/process"
	"github.com/bureau-foundation/deskshare/lib/version"
	"github.com/bureau-foundation/deskshare/stream"
)

func main() {
	process.Exit(run())
}

func run() error {
	var (
		configPath string
		role       string
		signalDir  string
		peer       string
	)

	flagSet := pflag.NewFlagSet("deskshare", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to deskshare.yaml (default: $DESKSHARE_CONFIG)")
	flagSet.StringVar(&role, "role", "", "pin the setup role: active or passive (default: from the mode)")
	flagSet.StringVar(&signalDir, "signal-dir", "", "directory shared with the peer for WebRTC signaling (transport.kind webrtc)")
	flagSet.StringVar(&peer, "peer", "", "URI of the peer whose desktop is viewed, for logs (view mode)")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("deskshare")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	args := flagSet.Args()
	if len(args) != 1 {
		printHelp(flagSet)
		return fmt.Errorf("expected exactly one mode (view or share), got %d arguments", len(args))
	}
	var mode sessionMode
	switch args[0] {
	case "view":
		mode = modeView
	case "share":
		mode = modeShare
	default:
		return fmt.Errorf("unknown mode %q: want view or share", args[0])
	}

	switch stream.Role(role) {
	case "", stream.RoleActive, stream.RolePassive:
	default:
		return fmt.Errorf("--role must be active or passive, got %q", role)
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Logging.SlogLevel()}))
	logger.Info("starting deskshare", "build", version.Current(), "mode", args[0])

	ctx, stop := process.SignalContext()
	defer stop()

	return runSession(ctx, sessionOptions{
		Config:    cfg,
		Mode:      mode,
		Role:      stream.Role(role),
		SignalDir: signalDir,
		Peer:      stream.Identity{URI: peer},
		Input:     bufio.NewReader(os.Stdin),
		Output:    os.Stdout,
		Logger:    logger,
	})
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `deskshare: share or view a desktop over a chunked stream.

Usage:
  deskshare [flags] view    offer to view a peer's desktop
  deskshare [flags] share   answer an offer and share this desktop

view prints an offer on stdout and reads the answer from stdin. share
reads the offer from stdin and prints the answer on stdout. Each
description ends at a blank line.

Flags:
`)
	flagSet.PrintDefaults()
}
