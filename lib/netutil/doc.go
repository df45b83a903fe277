// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides byte-stream plumbing shared by the
// desktop-sharing workers.
//
// [Bridge] copies bytes both ways between two streams until either
// side finishes. [IsExpectedCloseError] classifies the errors that
// occur during normal teardown of such a bridge so they are not
// reported as failures.
package netutil
