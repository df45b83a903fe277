// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"fmt"
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"

	"github.com/bureau-foundation/deskshare/lib/clock"
)

// Notification is one posted event.
type Notification struct {
	// Name identifies the event, e.g. "StreamDidStart".
	Name string

	// Sender is the object that posted the notification.
	Sender any

	// Data carries event-specific detail. Nil when the event has none.
	Data any

	// Time is when the notification was posted.
	Time time.Time
}

// Observer receives notifications.
type Observer func(Notification)

// Subscription identifies a registered observer for Unsubscribe.
type Subscription struct {
	name string
	id   uint64
}

type registration struct {
	id       uint64
	observer Observer
}

// Center is a notification hub. The zero value is not usable; create
// one with NewCenter.
//
// The bus carries one handler per notification name. Publish holds
// the bus lock while handlers run, so the handler only collects the
// observers registered for the name into the posted delivery; Post
// calls them after Publish returns. EventBus identifies handlers by
// code pointer, which cannot tell two observers built from the same
// closure apart, so the observer list is kept on the Center.
//
// Lock order: subscribeMu, then the bus lock, then mu. Observers run
// with no lock held.
type Center struct {
	bus   evbus.Bus
	clock clock.Clock

	// subscribeMu serializes first-time bus registration of a name.
	subscribeMu sync.Mutex
	registered  map[string]bool

	mu        sync.Mutex
	nextID    uint64
	observers map[string][]registration
}

// delivery is published on the bus. The bus handler fills observers.
type delivery struct {
	notification Notification
	observers    []Observer
}

// NewCenter creates a Center. A nil clock uses the real clock.
func NewCenter(c clock.Clock) *Center {
	if c == nil {
		c = clock.Real()
	}
	return &Center{
		bus:        evbus.New(),
		clock:      c,
		registered: make(map[string]bool),
		observers:  make(map[string][]registration),
	}
}

// Post delivers a notification to every observer of name, in
// subscription order, and returns once they have all returned.
// Observers may post, subscribe, unsubscribe or call back into the
// sender; a notification posted from an observer is delivered before
// the outer Post moves on to its next observer.
func (center *Center) Post(name string, sender any, data any) {
	posted := &delivery{notification: Notification{
		Name:   name,
		Sender: sender,
		Data:   data,
		Time:   center.clock.Now(),
	}}
	center.bus.Publish(name, posted)

	for _, observer := range posted.observers {
		observer(posted.notification)
	}
}

// Subscribe registers observer for notifications named name.
func (center *Center) Subscribe(name string, observer Observer) (Subscription, error) {
	if err := center.register(name); err != nil {
		return Subscription{}, err
	}

	center.mu.Lock()
	defer center.mu.Unlock()
	center.nextID++
	center.observers[name] = append(center.observers[name], registration{id: center.nextID, observer: observer})
	return Subscription{name: name, id: center.nextID}, nil
}

// register installs the bus handler for name once. It never holds mu
// while taking the bus lock.
func (center *Center) register(name string) error {
	center.subscribeMu.Lock()
	defer center.subscribeMu.Unlock()

	if center.registered[name] {
		return nil
	}
	if err := center.bus.Subscribe(name, center.collector(name)); err != nil {
		return fmt.Errorf("subscribing to %s: %w", name, err)
	}
	center.registered[name] = true
	return nil
}

// SubscribeAll registers observer for each of names.
func (center *Center) SubscribeAll(observer Observer, names ...string) ([]Subscription, error) {
	subscriptions := make([]Subscription, 0, len(names))
	for _, name := range names {
		subscription, err := center.Subscribe(name, observer)
		if err != nil {
			for _, made := range subscriptions {
				center.Unsubscribe(made)
			}
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}
	return subscriptions, nil
}

// Unsubscribe removes a subscription. Unknown or already removed
// subscriptions are ignored. An observer removed while a Post is
// delivering may still receive that notification.
func (center *Center) Unsubscribe(subscription Subscription) {
	center.mu.Lock()
	defer center.mu.Unlock()

	registrations := center.observers[subscription.name]
	for index, registered := range registrations {
		if registered.id == subscription.id {
			center.observers[subscription.name] = append(registrations[:index:index], registrations[index+1:]...)
			return
		}
	}
}

// HasObservers reports whether any observer is registered for name.
func (center *Center) HasObservers(name string) bool {
	center.mu.Lock()
	defer center.mu.Unlock()
	return len(center.observers[name]) > 0
}

// collector returns the bus handler for name. It runs under the bus
// lock and only snapshots the observer list into the delivery.
func (center *Center) collector(name string) func(*delivery) {
	return func(posted *delivery) {
		center.mu.Lock()
		registrations := center.observers[name]
		center.mu.Unlock()

		for _, registered := range registrations {
			posted.observers = append(posted.observers, registered.observer)
		}
	}
}
