package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadSecret(t *testing.T) {
	got, err := readSecret(strings.NewReader("correct horse\r\n"))
	if err != nil || string(got) != "correct horse" {
		t.Errorf("readSecret = %q, %v", got, err)
	}

	// Only trailing newlines are dropped; spaces belong to the password.
	got, _ = readSecret(strings.NewReader(" padded \n"))
	if string(got) != " padded " {
		t.Errorf("Expected surrounding spaces to be kept, got %q", got)
	}
}

func TestReadSecret_Rejects(t *testing.T) {
	if _, err := readSecret(strings.NewReader("\n")); err == nil {
		t.Error("Empty input should be rejected")
	}
	if _, err := readSecret(bytes.NewReader(make([]byte, maxStdinSecret+1))); err == nil {
		t.Error("Oversized input should be rejected")
	}
}
