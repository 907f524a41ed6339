// Package utils provides shared utility functions for the Tosk application.
//
// # Filesystem Utilities
//
//   - WriteFileAtomic: temp file + fsync + rename, so a file is never observed half-written
//   - FileExists: regular-file check
//   - ConfigDir, DataDir: platform directories with TOSK_CONFIG_DIR / TOSK_DATA_DIR overrides
//
// # System Utilities
//
//   - GetUsername, GetHostname, DeviceLabel: identify the machine in commit messages
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - IsSafeRelativePath: rejects backup names that would escape their directory
//
// # Terminal and I/O Utilities
//
//   - ReadPassphrase, ReadNewPassphrase: hidden input via golang.org/x/term
//   - ReadStdin: reads a piped master password
package utils
