// Package middleware adapts the gateAuth engine to net/http.
//
// [LoadSession] restores the dashboard session from its cookie and stores
// the principal and current authorization in the request context.
// [RequireSession] sends anonymous requests to the login page.
// [RequireCSRF] guards state-changing requests with the double-submit
// CSRF check. [RequestMeta] records client address and user agent for
// login throttling and audit.
//
// Authentication decisions are made by the engine; this package only
// moves values between HTTP and the engine.
package middleware
