// Package gateAuth is the session-based authentication gate of the admin
// dashboard: it checks configured users' credentials, keeps login sessions in
// Redis, guards the login form against cross-site forgery, and resolves which
// managed applications an identity may reach.
//
// An [Engine] is assembled once by a [Builder] and is safe to share between
// request goroutines. Nothing in the package relies on global state.
//
// # Request flow
//
//	POST login  -> VerifyCSRFToken -> Login (throttle, validate, create session, sign cookie)
//	any request -> Authenticate (verify cookie, restore session, Resolve)
//	GET logout  -> Logout (destroy session; the caller always clears the cookie)
//
// Authorization is recomputed from the user list on every request rather than
// cached in the session, so scope changes apply to live sessions after a
// restart with new configuration.
//
// # Architecture boundaries
//
// gateAuth is the public surface. Session encoding lives in session/, cookie
// signing in jwt/, password verification in password/, and CSRF and throttle
// primitives under internal/. The HTTP surface is in api/ and middleware/.
//
// # What this package must NOT do
//
//   - Log or audit passwords, stored secrets or cookie values.
//   - Report a request as authenticated when the session store is unreachable.
//   - Expose the password-less username lookup to anything but a restored
//     [Principal].
package gateAuth
