// Package password implements secret hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification reads the cost parameters from the stored hash, so raising
// the configured cost does not invalidate existing hashes. [Argon2.NeedsUpgrade]
// reports hashes made with weaker parameters.
//
// # What this package must NOT do
//
//   - Store or retrieve secrets; callers supply plaintext and receive hashes.
//   - Import any other tokenguard package.
//   - Log plaintext secrets.
package password
