// Package rate throttles failed dashboard logins with Redis fixed-window
// counters: INCR, then EXPIRE on the first hit of a window.
//
// Key layout under the configured prefix:
//   - <prefix>:u:<username>  failed attempts per username
//   - <prefix>:ip:<ip>       failed attempts per client IP
//
// # What this package must NOT do
//
//   - Decide what happens when Redis is down. Callers choose to fail open.
//   - Be imported outside the gateAuth module.
package rate
