// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

// Notification names posted by DesktopStream. The sender is always the
// stream.
const (
	NotificationDidInitialize = "StreamDidInitialize"
	NotificationDidStart      = "StreamDidStart"
	NotificationDidFail       = "StreamDidFail"
	NotificationWillEnd       = "StreamWillEnd"
	NotificationDidEnd        = "StreamDidEnd"
)

// Notifications lists every name DesktopStream posts, in lifecycle
// order.
var Notifications = []string{
	NotificationDidInitialize,
	NotificationDidStart,
	NotificationDidFail,
	NotificationWillEnd,
	NotificationDidEnd,
}

// FailureData is the data of a StreamDidFail notification.
type FailureData struct {
	// Context is one of the Context* constants.
	Context string

	// Reason is a human-readable description of the failure.
	Reason string

	// Err is the failure itself.
	Err error
}
