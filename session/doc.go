// Package session provides Redis-backed persistence for dashboard login
// sessions.
//
// # Encoding
//
// A session blob is either a compact binary record (version byte 0x01) or a
// msgpack map. [Store] writes whichever [Encoding] it was built with and
// [Decode] reads both, so the setting can change without invalidating live
// sessions.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model. It
// does NOT sign cookies, check credentials, or decide whether a session is
// still valid for a request. Those belong to the Engine.
//
// # What this package must NOT do
//
//   - Import gateAuth, jwt, or password (no upward imports).
//   - Store passwords or cookie secrets in [Session] fields.
package session
