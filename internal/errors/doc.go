// Package errors provides typed error values for the Tosk application.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. The richer
// error types (CryptoError, ConfigError, NetworkError, ConflictError and
// PartialFailure) each match a sentinel through their Is method, so callers
// can test the category with errors.Is() and extract details with errors.As().
//
// # Error Categories
//
//   - Crypto errors: decryption failures (ErrAuthentication, CryptoError)
//   - Config errors: the encrypted config (ErrConfigMissing, ErrWrongPassword, ErrConfigMalformed)
//   - Remote errors: the contents API (ErrNetwork, ErrTimeout, ErrConflict)
//   - Batch errors: backup and restore (ErrPartialFailure, ErrNoFilesFound)
//
// # Usage
//
// Handle errors in the CLI layer:
//
//	session, _, err := workflows.LoadOrCreateConfig(ctx, opts)
//	if errors.Is(err, kerrors.ErrWrongPassword) {
//	    // Ask for the password again
//	}
//
// Extract details:
//
//	var netErr *kerrors.NetworkError
//	if errors.As(err, &netErr) && netErr.Kind == kerrors.HTTPStatus {
//	    fmt.Println(netErr.StatusCode)
//	}
package errors
