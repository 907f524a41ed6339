// Package remote stores backup files in a GitHub repository through the
// Contents API.
//
// Each file is addressed by a slash-separated path below the repository
// root. Every path segment is percent-encoded, so names such as
// "my backups/tasks 2025.json" are sent intact.
//
// # Versions
//
// GetFile returns the file's content and its blob SHA, the version token
// GitHub expects back on the next write. PutFile sends that token; if the
// file changed in between, the API refuses the write and PutFile returns an
// *errors.ConflictError. Files that do not exist yet are written without a
// token.
//
// # Retries and Timeouts
//
// GETs go through go-retryablehttp and are retried a bounded number of
// times on connection errors, 429 and 5xx responses. PUTs are sent once.
// Every operation runs under Options.Timeout (30s by default); running out
// of time yields a NetworkError of kind Timeout.
//
// Only https endpoints are accepted, and a redirect to anything else fails
// with ErrInsecureTransport before a request is sent.
package remote
