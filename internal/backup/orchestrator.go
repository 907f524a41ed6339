package backup

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"
	logger "github.com/PolarWolf314/tosk/internal/logging"
	"github.com/PolarWolf314/tosk/internal/remote"
	"github.com/PolarWolf314/tosk/internal/secrets"
	"github.com/PolarWolf314/tosk/internal/utils"
)

// RemoteStore is the part of the remote client the orchestrator needs.
type RemoteStore interface {
	GetFile(ctx context.Context, path string) (*remote.RemoteFile, error)
	PutFile(ctx context.Context, path string, data []byte, existingSHA string) (string, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Prefix is the remote directory backups live under.
	Prefix string
	// DestDir is where Restore writes recovered files. Empty means the
	// results only carry the bytes.
	DestDir string

	// Iterations and Cipher apply to newly sealed blobs.
	Iterations int
	Cipher     secrets.Cipher

	Logger logger.Logger

	// OnResult is called after each file settles.
	OnResult func(*Result)
}

// Orchestrator backs up and restores a batch of files one at a time. A
// failure on one file never stops the others.
type Orchestrator struct {
	client RemoteStore
	opts   Options
}

// New returns an orchestrator using client.
func New(client RemoteStore, opts Options) *Orchestrator {
	if opts.Iterations == 0 {
		opts.Iterations = secrets.DefaultKDFIterations
	}
	if opts.Cipher == "" {
		opts.Cipher = secrets.DefaultCipher
	}
	return &Orchestrator{client: client, opts: opts}
}

// Backup uploads files. A non-empty passphrase seals each file before
// upload; an empty one uploads plain content.
func (o *Orchestrator) Backup(ctx context.Context, files []File, passphrase string) *Report {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	report := newReport(OpBackup, names)

	o.run(ctx, report, func(i int, res *Result) error {
		return o.backupOne(ctx, files[i], passphrase, res)
	})
	return report
}

// Restore downloads names. Sealed blobs are opened with passphrase; plain
// content is returned as is.
func (o *Orchestrator) Restore(ctx context.Context, names []string, passphrase string) *Report {
	report := newReport(OpRestore, names)

	o.run(ctx, report, func(i int, res *Result) error {
		return o.restoreOne(ctx, res, passphrase)
	})
	return report
}

func (o *Orchestrator) run(ctx context.Context, report *Report, do func(int, *Result) error) {
	defer func() { report.FinishedAt = time.Now() }()

	for i, res := range report.Results {
		if err := ctx.Err(); err != nil {
			for _, rest := range report.Results[i:] {
				o.settle(rest, fmt.Errorf("not started: %w", err))
			}
			return
		}

		res.Status = InFlight
		start := time.Now()
		o.opts.Logger.Debugf("%s %s: started", report.Op, res.Name)

		err := do(i, res)
		o.settle(res, err)
		if err != nil {
			o.opts.Logger.Infof("%s %s: failed after %s: %v", report.Op, res.Name, time.Since(start).Round(time.Millisecond), err)
		} else {
			o.opts.Logger.Infof("%s %s: done in %s", report.Op, res.Name, time.Since(start).Round(time.Millisecond))
		}
	}
}

func (o *Orchestrator) settle(res *Result, err error) {
	if err != nil {
		res.Status = Failed
		res.Err = err
		res.Content = nil
	} else {
		res.Status = Succeeded
	}
	if o.opts.OnResult != nil {
		o.opts.OnResult(res)
	}
}

func (o *Orchestrator) backupOne(ctx context.Context, f File, passphrase string, res *Result) error {
	if f.Err != nil {
		return f.Err
	}
	remotePath, err := o.remotePath(f.Name)
	if err != nil {
		return err
	}
	res.RemotePath = remotePath

	data := f.Content
	if passphrase != "" {
		sealed, err := secrets.SealBlob(f.Content, []byte(passphrase), o.opts.Iterations, o.opts.Cipher)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", f.Name, err)
		}
		data = sealed
		res.Encrypted = true
	}

	current, err := o.client.GetFile(ctx, remotePath)
	if err != nil {
		return err
	}
	var sha string
	if current != nil {
		sha = current.SHA
	}

	version, err := o.client.PutFile(ctx, remotePath, data, sha)
	if err != nil {
		return err
	}
	res.Version = version
	return nil
}

func (o *Orchestrator) restoreOne(ctx context.Context, res *Result, passphrase string) error {
	remotePath, err := o.remotePath(res.Name)
	if err != nil {
		return err
	}
	res.RemotePath = remotePath

	file, err := o.client.GetFile(ctx, remotePath)
	if err != nil {
		return err
	}
	if file == nil {
		return fmt.Errorf("%w: %s", kerrors.ErrRemoteFileNotFound, remotePath)
	}
	res.Version = file.SHA

	content := file.Content
	if secrets.IsSealedBlob(content) {
		res.Encrypted = true
		if passphrase == "" {
			return kerrors.ErrPassphraseRequired
		}
		content, err = secrets.OpenBlob(content, []byte(passphrase))
		if err != nil {
			return err
		}
	}

	if o.opts.DestDir != "" {
		dest := filepath.Join(o.opts.DestDir, filepath.FromSlash(res.Name))
		if err := utils.WriteFileAtomic(dest, content, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		res.Path = dest
	}
	res.Content = content
	return nil
}

func (o *Orchestrator) remotePath(name string) (string, error) {
	if !utils.IsSafeRelativePath(name) {
		return "", fmt.Errorf("%w: %q", kerrors.ErrInvalidFileName, name)
	}
	if o.opts.Prefix == "" {
		return name, nil
	}
	return path.Join(o.opts.Prefix, name), nil
}
