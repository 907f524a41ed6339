package backup

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"
	"github.com/PolarWolf314/tosk/internal/utils"
)

// File is one local file to back up. Name is slash-separated and relative
// to the data directory.
type File struct {
	Name    string
	Content []byte
	// Err is set when the file matched but could not be read. Backup
	// records it as that file's failure.
	Err error
}

// LoadFiles resolves patterns relative to dir and reads the matching files.
// Patterns may be plain names or doublestar globs ("exports/**/*.csv").
// Matches are deduplicated and keep pattern order.
//
// Patterns that match nothing are returned in unmatched. If nothing at all
// matches, the error is ErrNoFilesFound.
func LoadFiles(dir string, patterns []string) (files []File, unmatched []string, err error) {
	fsys := os.DirFS(dir)
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if path.IsAbs(pattern) || !doublestar.ValidatePattern(pattern) || escapes(pattern) {
			return nil, nil, fmt.Errorf("%w: pattern %q", kerrors.ErrInvalidFileName, pattern)
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			unmatched = append(unmatched, pattern)
			continue
		}

		for _, name := range matches {
			if seen[name] || !utils.IsSafeRelativePath(name) {
				continue
			}
			seen[name] = true

			content, readErr := fs.ReadFile(fsys, name)
			if readErr != nil {
				readErr = fmt.Errorf("failed to read %s: %w", name, readErr)
			}
			files = append(files, File{Name: name, Content: content, Err: readErr})
		}
	}

	if len(files) == 0 {
		return nil, unmatched, kerrors.ErrNoFilesFound
	}
	return files, unmatched, nil
}

func escapes(pattern string) bool {
	for _, seg := range strings.Split(pattern, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
