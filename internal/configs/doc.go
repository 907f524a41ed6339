// Package configs loads and saves Tosk's configuration.
//
// Two files live in the user config directory (see utils.ConfigDir):
//
//   - config.enc: the encrypted Config (GitHub token, owner, repository and
//     the optional backup passphrase)
//   - settings.toml: non-secret Preferences (API base URL, timeouts, backup
//     file patterns, key derivation cost)
//
// # Encrypted Configuration
//
// Store.Save serialises a Config to JSON, encrypts it under a key derived
// from the master password, and writes a small JSON envelope holding the
// salt, iteration count, nonce and ciphertext. The write goes through
// utils.WriteFileAtomic, so a crash leaves either the old or the new file.
// The salt is generated once and reused on later saves.
//
// Store.Load returns an *errors.ConfigError whose Kind says what went wrong:
//
//	cfg, err := store.Load(password)
//	switch {
//	case errors.Is(err, kerrors.ErrConfigMissing):   // first run
//	case errors.Is(err, kerrors.ErrWrongPassword):   // ask again
//	case errors.Is(err, kerrors.ErrConfigMalformed): // damaged file
//	}
//
// # Sessions
//
// A decrypted Config is handed out inside a Session. Callers pass the
// session to the operations that need secrets and Close it when done;
// nothing in this package keeps decrypted state at package level.
//
// # Preferences
//
// LoadPreferences returns DefaultPreferences when settings.toml is absent
// and fills any field the file leaves out.
package configs
