package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Cryptographic errors indicate failures during encryption or decryption operations.
var (
	// ErrAuthentication indicates the authentication tag did not verify.
	// The key is wrong or the ciphertext was modified.
	ErrAuthentication = errors.New("authentication failed")

	// ErrInvalidKeyLength indicates the symmetric key has an unexpected length.
	ErrInvalidKeyLength = errors.New("invalid symmetric key length")

	// ErrWeakKDFParams indicates the KDF salt or iteration count is below the supported minimum.
	ErrWeakKDFParams = errors.New("key derivation parameters are too weak")

	// ErrUnsupportedCipher indicates the blob names a cipher suite this build does not know.
	ErrUnsupportedCipher = errors.New("unsupported cipher suite")

	// ErrPassphraseRequired indicates an encrypted blob was found but no passphrase was given.
	ErrPassphraseRequired = errors.New("passphrase required to decrypt backup")
)

// Config errors indicate the encrypted configuration could not be used.
var (
	// ErrConfigMissing indicates no configuration file exists yet.
	ErrConfigMissing = errors.New("configuration file not found")

	// ErrWrongPassword indicates the master password did not open the configuration.
	ErrWrongPassword = errors.New("wrong master password")

	// ErrConfigMalformed indicates the configuration file or its decrypted payload is invalid.
	ErrConfigMalformed = errors.New("configuration is malformed")

	// ErrInvalidPreferences indicates settings.toml holds an unusable value.
	ErrInvalidPreferences = errors.New("preferences are invalid")
)

// Remote errors indicate failures talking to the contents API.
var (
	// ErrNetwork matches every NetworkError.
	ErrNetwork = errors.New("network error")

	// ErrTimeout indicates a request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrConflict indicates the remote rejected an update carrying a stale version token.
	ErrConflict = errors.New("remote version conflict")

	// ErrRemoteFileNotFound indicates a requested backup does not exist remotely.
	ErrRemoteFileNotFound = errors.New("remote file not found")

	// ErrInsecureTransport indicates a non-HTTPS endpoint was configured or redirected to.
	ErrInsecureTransport = errors.New("remote endpoint must use https")

	// ErrUnexpectedResponse indicates a successful status with a body that
	// could not be decoded. For a write the change may already be stored.
	ErrUnexpectedResponse = errors.New("unexpected response from remote")

	// ErrIncompleteRemoteConfig indicates the token, owner or repository is missing.
	ErrIncompleteRemoteConfig = errors.New("remote repository settings are incomplete")
)

// Batch errors.
var (
	// ErrPartialFailure matches every PartialFailure.
	ErrPartialFailure = errors.New("some files failed")

	// ErrNoFilesFound indicates no files matched the provided patterns.
	ErrNoFilesFound = errors.New("no matching files found")

	// ErrInvalidFileName indicates a backup name would escape its directory.
	ErrInvalidFileName = errors.New("invalid file name")
)

// CryptoKind distinguishes why decryption failed.
type CryptoKind int

const (
	// Corrupted means the blob is damaged or was tampered with.
	Corrupted CryptoKind = iota
	// WrongKey means the blob is intact but the key does not open it.
	WrongKey
)

func (k CryptoKind) String() string {
	if k == WrongKey {
		return "wrong key"
	}
	return "corrupted"
}

// CryptoError reports a failed decryption.
type CryptoError struct {
	Kind   CryptoKind
	Reason string
}

func (e *CryptoError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("decryption failed: %s", e.Kind)
	}
	return fmt.Sprintf("decryption failed: %s: %s", e.Kind, e.Reason)
}

// Is makes every CryptoError match ErrAuthentication.
func (e *CryptoError) Is(target error) bool {
	return target == ErrAuthentication
}

// ConfigKind distinguishes why the configuration could not be loaded.
type ConfigKind int

const (
	Missing ConfigKind = iota
	WrongPassword
	Malformed
)

func (k ConfigKind) String() string {
	switch k {
	case Missing:
		return "missing"
	case WrongPassword:
		return "wrong password"
	default:
		return "malformed"
	}
}

// ConfigError reports a failure loading the encrypted configuration.
type ConfigError struct {
	Kind ConfigKind
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config ")
	b.WriteString(e.Kind.String())
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *ConfigError) Is(target error) bool {
	switch e.Kind {
	case Missing:
		return target == ErrConfigMissing
	case WrongPassword:
		return target == ErrWrongPassword
	default:
		return target == ErrConfigMalformed
	}
}

// NetworkKind distinguishes transport failures.
type NetworkKind int

const (
	Unreachable NetworkKind = iota
	Timeout
	HTTPStatus
)

// NetworkError reports a failed request to the remote API.
type NetworkError struct {
	Kind       NetworkKind
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case Timeout:
		return fmt.Sprintf("%s: request timed out", e.Op)
	case HTTPStatus:
		return fmt.Sprintf("%s: unexpected HTTP status %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: remote unreachable: %v", e.Op, e.Err)
		}
		return fmt.Sprintf("%s: remote unreachable", e.Op)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is makes every NetworkError match ErrNetwork, and timeouts match ErrTimeout.
func (e *NetworkError) Is(target error) bool {
	if target == ErrNetwork {
		return true
	}
	return target == ErrTimeout && e.Kind == Timeout
}

// ConflictError reports that the remote version moved since StaleVersion was read.
type ConflictError struct {
	Path         string
	StaleVersion string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("remote file %s changed since version %s", e.Path, e.StaleVersion)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// PartialFailure aggregates the per-file errors of a batch.
type PartialFailure struct {
	Total  int
	Failed map[string]error
	// Order keeps the failed names in batch order.
	Order []string
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%d of %d files failed: %s", len(e.Order), e.Total, strings.Join(e.Order, ", "))
}

func (e *PartialFailure) Is(target error) bool {
	return target == ErrPartialFailure
}

// Unwrap exposes the per-file errors to errors.Is and errors.As.
func (e *PartialFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Order))
	for _, name := range e.Order {
		errs = append(errs, e.Failed[name])
	}
	return errs
}
