package utils

import (
	"bytes"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/term"

	"github.com/PolarWolf314/tosk/internal/secrets"
)

// ReadPassphrase reads a secret from the terminal on stdin without echo.
// Prompts go to stderr so stdout stays clean for command output.
func ReadPassphrase(prompt string) ([]byte, error) {
	return readHidden(os.Stdin, "stdin", prompt)
}

// ReadPassphraseFromTTY is ReadPassphrase for when stdin carries other data,
// such as a piped master password. It reads from /dev/tty (CON on Windows).
func ReadPassphraseFromTTY(prompt string) ([]byte, error) {
	name := "/dev/tty"
	if runtime.GOOS == "windows" {
		name = "CON"
	}

	tty, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s for passphrase input: %w", name, err)
	}
	defer tty.Close()

	return readHidden(tty, name, prompt)
}

// ReadNewPassphrase asks for a passphrase twice. Empty or mismatched
// entries are rejected.
func ReadNewPassphrase(prompt, confirmPrompt string) ([]byte, error) {
	first, err := ReadPassphrase(prompt)
	if err != nil {
		return nil, err
	}
	if len(first) == 0 {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}

	second, err := ReadPassphrase(confirmPrompt)
	defer secrets.Zero(second)
	if err != nil {
		secrets.Zero(first)
		return nil, err
	}
	if !bytes.Equal(first, second) {
		secrets.Zero(first)
		return nil, fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

// IsTerminal reports whether stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func readHidden(f *os.File, name, prompt string) ([]byte, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cannot read passphrase: %s is not a terminal", name)
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return secret, nil
}
