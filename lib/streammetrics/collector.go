// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package streammetrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/deskshare/lib/notify"
	"github.com/bureau-foundation/deskshare/stream"
)

const (
	namespace = "deskshare"
	subsystem = "stream"
)

// Collector turns stream notifications into Prometheus metrics.
type Collector struct {
	center        *notify.Center
	subscriptions []notify.Subscription

	notifications *prometheus.CounterVec
	failures      *prometheus.CounterVec
	running       prometheus.Gauge
	duration      prometheus.Histogram

	mu      sync.Mutex
	started map[any]time.Time
}

// New registers the collector's metrics on registerer and subscribes
// it to every stream notification on center. Call Close to stop
// observing; the metrics stay registered.
func New(center *notify.Center, registerer prometheus.Registerer) (*Collector, error) {
	collector := &Collector{
		center: center,
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_total",
				Help:      "Stream lifecycle notifications posted, by name.",
			},
			[]string{"name"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "failures_total",
				Help:      "Stream failures, by the phase that failed.",
			},
			[]string{"context"},
		),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "running",
			Help:      "Streams that have started and not yet ended.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Time from stream start to stream end.",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200, 14400},
		}),
		started: make(map[any]time.Time),
	}

	for _, metric := range []prometheus.Collector{
		collector.notifications,
		collector.failures,
		collector.running,
		collector.duration,
	} {
		if err := registerer.Register(metric); err != nil {
			return nil, fmt.Errorf("registering stream metrics: %w", err)
		}
	}

	subscriptions, err := center.SubscribeAll(collector.observe, stream.Notifications...)
	if err != nil {
		return nil, fmt.Errorf("subscribing to stream notifications: %w", err)
	}
	collector.subscriptions = subscriptions
	return collector, nil
}

// Close stops observing notifications.
func (c *Collector) Close() {
	for _, subscription := range c.subscriptions {
		c.center.Unsubscribe(subscription)
	}
	c.subscriptions = nil
}

func (c *Collector) observe(notification notify.Notification) {
	c.notifications.WithLabelValues(notification.Name).Inc()

	switch notification.Name {
	case stream.NotificationDidFail:
		phase := "unknown"
		if data, ok := notification.Data.(stream.FailureData); ok && data.Context != "" {
			phase = data.Context
		}
		c.failures.WithLabelValues(phase).Inc()

	case stream.NotificationDidStart:
		c.mu.Lock()
		_, seen := c.started[notification.Sender]
		if !seen {
			c.started[notification.Sender] = notification.Time
		}
		c.mu.Unlock()
		if !seen {
			c.running.Inc()
		}

	case stream.NotificationDidEnd:
		c.mu.Lock()
		startedAt, seen := c.started[notification.Sender]
		delete(c.started, notification.Sender)
		c.mu.Unlock()
		if seen {
			c.running.Dec()
			c.duration.Observe(notification.Time.Sub(startedAt).Seconds())
		}
	}
}
