// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for deskshare packages.
//
// [RequireReceive], [RequireClosed] and [RequireNoReceive] wrap the
// select-with-timeout pattern so tests never hang on a channel that
// will not deliver. [UniqueID] produces distinguishable payloads and
// session identifiers without consulting the wall clock. [Logger]
// returns a discard logger for components that require one.
//
// All helpers call Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
