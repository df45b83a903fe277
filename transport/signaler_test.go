// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"testing"
)

// signalerFactories covers every Signaler implementation with the same
// behavioral tests.
func signalerFactories(t *testing.T) map[string]func() Signaler {
	return map[string]func() Signaler{
		"memory": func() Signaler { return NewMemorySignaler() },
		"directory": func() Signaler {
			signaler, err := NewDirectorySignaler(t.TempDir())
			if err != nil {
				t.Fatalf("NewDirectorySignaler: %v", err)
			}
			return signaler
		},
	}
}

func TestSignalerOfferAnswerRouting(t *testing.T) {
	for name, factory := range signalerFactories(t) {
		t.Run(name, func(t *testing.T) {
			signaler := factory()
			ctx := context.Background()

			if err := signaler.PublishOffer(ctx, "alpha", "beta", "offer-sdp"); err != nil {
				t.Fatalf("PublishOffer: %v", err)
			}

			if offers, err := signaler.PollOffers(ctx, "gamma"); err != nil || len(offers) != 0 {
				t.Errorf("PollOffers(gamma) = %v, %v, want none", offers, err)
			}
			offers, err := signaler.PollOffers(ctx, "beta")
			if err != nil {
				t.Fatalf("PollOffers: %v", err)
			}
			if len(offers) != 1 || offers[0].PeerSession != "alpha" || offers[0].SDP != "offer-sdp" {
				t.Fatalf("PollOffers(beta) = %+v, want one offer from alpha", offers)
			}
			if offers, _ := signaler.PollOffers(ctx, "beta"); len(offers) != 0 {
				t.Errorf("second PollOffers returned %d offers, want 0", len(offers))
			}

			if err := signaler.PublishAnswer(ctx, "alpha", "beta", "answer-sdp"); err != nil {
				t.Fatalf("PublishAnswer: %v", err)
			}
			if answers, _ := signaler.PollAnswers(ctx, "beta"); len(answers) != 0 {
				t.Errorf("PollAnswers(beta) returned %d answers, want 0", len(answers))
			}
			answers, err := signaler.PollAnswers(ctx, "alpha")
			if err != nil {
				t.Fatalf("PollAnswers: %v", err)
			}
			if len(answers) != 1 || answers[0].PeerSession != "beta" || answers[0].SDP != "answer-sdp" {
				t.Fatalf("PollAnswers(alpha) = %+v, want one answer from beta", answers)
			}
		})
	}
}

func TestSignalerRejectsUnsafeSessionIDs(t *testing.T) {
	for name, factory := range signalerFactories(t) {
		t.Run(name, func(t *testing.T) {
			signaler := factory()
			for _, session := range []string{"", "a|b", "../etc", "a.b"} {
				if err := signaler.PublishOffer(context.Background(), session, "beta", "sdp"); err == nil {
					t.Errorf("PublishOffer(%q) succeeded, want error", session)
				}
			}
		})
	}
}
