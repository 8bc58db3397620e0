// Package jwt signs and verifies the value of the dashboard session cookie.
//
// The cookie carries an HS256 token whose only application claim is the
// session id ("sid"). It proves the id was minted by this service; whether
// the session still exists is decided by the session store.
package jwt
