// Package secrets provides the cryptographic primitives for Tosk.
//
// # Key Derivation
//
// Keys are derived from passphrases with PBKDF2-HMAC-SHA256:
//
//	key, err := secrets.DeriveKey(passphrase, salt, secrets.DefaultKDFIterations)
//
// DefaultKDFIterations (600,000) is used for new files. Anything below
// MinKDFIterations (100,000), above MaxKDFIterations (10,000,000) or with a
// salt shorter than 16 bytes is rejected.
//
// # Authenticated Encryption
//
// Encrypt and Decrypt use a 256-bit key and a random 96-bit nonce per call.
// Two suites are supported:
//
//   - aes-256-gcm (default)
//   - chacha20-poly1305 (golang.org/x/crypto)
//
// Every blob carries a short HMAC-based key check. Decrypt compares it first,
// so a wrong passphrase fails with a WrongKey CryptoError while a modified
// ciphertext, nonce or tag fails with Corrupted. Both match
// errors.ErrAuthentication, and neither returns any plaintext.
//
// # Backup Blobs
//
// SealBlob produces a self-contained base64 text holding a magic header,
// the cipher id, the iteration count, the salt, the key check, the nonce and
// the ciphertext. OpenBlob needs only the passphrase. IsSealedBlob lets
// restore tell an encrypted backup apart from one uploaded in plain form.
//
// Callers should Zero keys and passphrases when done with them.
package secrets
