package backup

import (
	"time"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"
)

// Status is where a file is in its batch.
type Status int

const (
	Pending Status = iota
	InFlight
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case InFlight:
		return "in flight"
	case Succeeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// Operation names the kind of batch a Report describes.
type Operation string

const (
	OpBackup  Operation = "backup"
	OpRestore Operation = "restore"
)

// Result is the outcome for one file.
type Result struct {
	Name       string
	RemotePath string
	Status     Status
	Err        error

	// Encrypted is true if the remote copy is a sealed blob.
	Encrypted bool
	// Version is the remote blob SHA after a backup, or the one read on restore.
	Version string
	// Content holds the recovered bytes of a successful restore.
	Content []byte
	// Path is where a restore wrote the file, if anywhere.
	Path string
}

// Report lists one Result per requested file, in request order.
type Report struct {
	Op         Operation
	Results    []*Result
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded returns the names of the files that succeeded.
func (r *Report) Succeeded() []string {
	var names []string
	for _, res := range r.Results {
		if res.Status == Succeeded {
			names = append(names, res.Name)
		}
	}
	return names
}

// Failed returns the results that failed.
func (r *Report) Failed() []*Result {
	var out []*Result
	for _, res := range r.Results {
		if res.Status == Failed {
			out = append(out, res)
		}
	}
	return out
}

// Result returns the result for name, or nil.
func (r *Report) Result(name string) *Result {
	for _, res := range r.Results {
		if res.Name == name {
			return res
		}
	}
	return nil
}

// Err returns a *errors.PartialFailure naming every failed file, or nil if
// all files succeeded.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}

	pf := &kerrors.PartialFailure{
		Total:  len(r.Results),
		Failed: make(map[string]error, len(failed)),
	}
	for _, res := range failed {
		pf.Failed[res.Name] = res.Err
		pf.Order = append(pf.Order, res.Name)
	}
	return pf
}

// Duration is how long the batch took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func newReport(op Operation, names []string) *Report {
	r := &Report{Op: op, StartedAt: time.Now(), Results: make([]*Result, len(names))}
	for i, name := range names {
		r.Results[i] = &Result{Name: name, Status: Pending}
	}
	return r
}
