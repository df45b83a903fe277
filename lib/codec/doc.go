// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by
// deskshare's wire formats.
//
// The chunk transport frames every chunk as one CBOR data item on the
// underlying byte stream (TCP, TLS, or a WebRTC data channel). Using a
// self-delimiting encoding means the reader never needs a length
// prefix: the decoder consumes exactly one item per chunk and leaves
// the next one in the stream.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical chunk always produces identical bytes, which keeps
// transport tests byte-comparable.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (transport connections):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Wire types carry `cbor` struct tags with short keys. They are never
// marshaled to JSON.
package codec
