// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries MSRP-style chunks between two peers of a
// media stream.
//
// A stream learns its local [Path] before the offer/answer exchange
// completes and its remote Path only afterwards, so establishment is
// split in two. An [Establisher] prepares a [Pending] handle together
// with the local Path (PrepareConnect for the active side,
// PrepareAccept for the passive side). Once the remote Path is known,
// [Pending.Complete] produces a live [Conn]. A Pending that is never
// completed must be released with [Pending.Cleanup].
//
// Completion ends with a bind handshake: the connecting side sends an
// empty SEND chunk addressed to the acceptor's Path, and the acceptor
// answers 200 only when the chunk's To-Path names its own session.
// Connections bound to a different session are answered 481 and
// dropped.
//
// [Conn] frames each [Chunk] as one CBOR data item (see lib/codec).
// Writes are serialized internally because the read side of a stream
// writes responses while the application writes data. [MakeResponse]
// applies the Failure-Report policy: a chunk sent with "no", or with
// "partial" for a success status, gets no response.
//
// Two establishers ship with the package. [TCPEstablisher] uses direct
// TCP or TLS connections and rejects relay settings with
// [ErrRelayUnsupported]. [WebRTCEstablisher] runs each stream over a
// pion data channel; relay settings become TURN servers and force
// relay-only ICE candidates. SDP for the data channel is exchanged
// through a [Signaler] keyed by session id. [MemorySignaler] serves
// tests and [DirectorySignaler] lets two processes on one host or a
// shared filesystem rendezvous.
package transport
