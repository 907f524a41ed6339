// Package audit keeps a local history of Tosk operations.
//
// Every config change, backup and restore appends one JSON object to
// history.jsonl in the user config directory:
//
//	{"ts":"2025-03-01T09:00:00.000000Z","device":"alice@laptop","session":"…","op":"backup","files":["tasks.json"]}
//
// Entries record file names and counts only, never file content or secrets.
//
// # Failure Handling
//
// Writing history is best-effort. If it fails, the operation that produced
// the entry still succeeds.
package audit
