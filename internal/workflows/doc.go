// Package workflows provides high-level orchestration for Tosk commands.
//
// Workflows coordinate the configs, remote, backup and audit packages to
// implement complete user-facing features, independent of CLI concerns like
// flag parsing, spinners, and output formatting.
//
// # Sessions
//
// LoadOrCreateConfig opens the encrypted config (running a first-run flow
// if there is none) and returns a *configs.Session. Every other workflow
// takes that session explicitly; close it when the command is done.
//
//	session, created, err := workflows.LoadOrCreateConfig(ctx, workflows.LoadOrCreateOptions{
//	    Store:          configs.NewStore(path),
//	    MasterPassword: password,
//	    FirstRun:       promptForConfig,
//	})
//	defer session.Close()
//
// # Available Workflows
//
//   - LoadOrCreateConfig, SaveConfig, ChangeMasterPassword: the encrypted config
//   - Backup: uploads planner files, sealed with the backup passphrase
//   - Restore: downloads and opens backups into the data directory
//   - ListRemote: lists what is stored remotely
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package. Backup and
// Restore return their report together with a *errors.PartialFailure when
// some files failed, so callers can show per-file outcomes:
//
//	report, err := workflows.Backup(ctx, session, opts)
//	if errors.Is(err, kerrors.ErrPartialFailure) {
//	    // report.Failed() lists what went wrong
//	}
//
// Every workflow appends an entry to the local history (see package audit).
package workflows
