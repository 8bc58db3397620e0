// Package password verifies stored dashboard passwords and produces new hashes
// for operators.
//
// Two encodings are recognised by prefix:
//
//	$2a$ / $2b$ / $2y$                                  bcrypt
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>   argon2id
//
// [Verify] never returns an error: an unrecognised or malformed stored value is
// simply a non-match.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and hashes.
//   - Import any other gateAuth package.
//   - Log plaintext passwords.
package password
