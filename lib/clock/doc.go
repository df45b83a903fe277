// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Notification timestamps, ICE gathering timeouts and signaling poll
// tickers all go through a [Clock] so tests can pin time with [Fake]
// instead of sleeping. Production code uses [Real].
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go poller(c)
//	c.WaitForTimers(1)
//	c.Advance(500 * time.Millisecond)
package clock
