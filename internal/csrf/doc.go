// Package csrf implements salted, HMAC-bound anti-forgery tokens for the
// login form. The visitor secret travels in its own cookie; the token is
// echoed back in the form body or a header.
package csrf
