// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package streammetrics exports desktop-sharing stream lifecycle
// metrics to Prometheus.
//
// A [Collector] observes the stream notifications posted on a
// [notify.Center] and keeps four metrics:
//
//   - deskshare_stream_notifications_total{name}
//   - deskshare_stream_failures_total{context}
//   - deskshare_stream_running
//   - deskshare_stream_duration_seconds
//
// Streams are told apart by notification sender. A stream counts as
// running from StreamDidStart until its StreamDidEnd; streams that end
// without starting never touch the gauge or the histogram.
package streammetrics
