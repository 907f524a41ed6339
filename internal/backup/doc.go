// Package backup runs batches of file backups and restores against a
// remote store.
//
// Files are handled one at a time, in order. Each moves from Pending to
// InFlight and then to Succeeded or Failed; a failure is recorded on that
// file's Result and the batch carries on. The returned Report keeps one
// Result per requested file, in request order, and Report.Err summarises
// the failures as an *errors.PartialFailure.
//
// With a passphrase, Backup seals each file with secrets.SealBlob before it
// leaves the machine. Restore opens sealed blobs and passes plain uploads
// through unchanged.
//
// Cancelling the context stops the batch before the next file starts;
// files that never started are reported as failed with the context error.
package backup
