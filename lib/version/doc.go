// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the deskshare binary.
//
// [Version], [GitCommit] and [BuildTime] are injected with -ldflags -X.
// A binary built without them (go install, go run, tests) falls back
// to the VCS stamp the Go toolchain embeds, and to "unknown" when there
// is none.
package version
