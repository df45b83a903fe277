// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for deskshare.
// These functions centralize the raw I/O and exit handling that happen
// before the structured logger exists or after it is gone:
//
//   - Fatal error reporting to stderr from main().
//   - Mapping the error returned by run() to a process exit code.
//   - A root context cancelled by SIGINT or SIGTERM.
package process
