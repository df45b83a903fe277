// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify delivers named notifications from a sender to any
// number of observers.
//
// A [Center] wraps an asaskevich/EventBus bus with one topic per
// notification name. [Center.Post] is synchronous: every observer has
// returned before Post does, so a component can guarantee that a
// failure notification was delivered before it returns the error to
// its caller.
//
// Observers run on the posting goroutine with no lock held, after the
// bus has released its own. An observer may post, subscribe,
// unsubscribe or call back into the sender; a nested post is delivered
// in full before the outer post reaches its next observer.
package notify
