// Package internal contains helper utilities that are intentionally private to gateAuth,
// such as secure random identifier generation.
//
// # Sub-packages
//
//   - csrf: anti-forgery token minting and verification
//   - rate: Redis-backed login throttling primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public gateAuth API.
//   - Be imported by any package outside the gateAuth module.
package internal
