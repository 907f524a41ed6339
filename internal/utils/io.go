package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// maxStdinSecret bounds a piped master password.
const maxStdinSecret = 64 << 10

// ReadStdin reads a secret piped on stdin, dropping the trailing newline
// that `echo` adds. It refuses to read from an interactive terminal.
func ReadStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat stdin: %w", err)
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return nil, errors.New("nothing piped on stdin (hint: echo \"$PASSWORD\" | tosk ... --password-stdin)")
	}
	return readSecret(os.Stdin)
}

func readSecret(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxStdinSecret+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read from stdin: %w", err)
	}
	if len(data) > maxStdinSecret {
		return nil, fmt.Errorf("stdin input exceeds %d bytes", maxStdinSecret)
	}

	data = bytes.TrimRight(data, "\r\n")
	if len(data) == 0 {
		return nil, errors.New("stdin is empty")
	}
	return data, nil
}
