package secrets

import (
	"bytes"
	"errors"
	"testing"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"
)

// testIterations keeps the suite fast while staying at the accepted minimum.
const testIterations = MinKDFIterations

func deriveTestKey(t *testing.T, passphrase string, salt []byte) []byte {
	t.Helper()
	key, err := DeriveKey([]byte(passphrase), salt, testIterations)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	return key
}

func TestDeriveKey_Deterministic(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt failed: %v", err)
	}

	first := deriveTestKey(t, "correct horse", salt)
	second := deriveTestKey(t, "correct horse", salt)

	if len(first) != KeySize {
		t.Fatalf("Expected %d byte key, got %d", KeySize, len(first))
	}
	if !bytes.Equal(first, second) {
		t.Error("Same passphrase, salt and iterations should produce the same key")
	}

	other := deriveTestKey(t, "correct horsf", salt)
	if bytes.Equal(first, other) {
		t.Error("Different passphrases should produce different keys")
	}

	otherSalt, _ := NewSalt()
	if bytes.Equal(first, deriveTestKey(t, "correct horse", otherSalt)) {
		t.Error("Different salts should produce different keys")
	}
}

func TestDeriveKey_RejectsWeakParams(t *testing.T) {
	salt, _ := NewSalt()

	if _, err := DeriveKey([]byte("pw"), salt, MinKDFIterations-1); !errors.Is(err, kerrors.ErrWeakKDFParams) {
		t.Errorf("Expected ErrWeakKDFParams for low iterations, got %v", err)
	}
	if _, err := DeriveKey([]byte("pw"), salt, MaxKDFIterations+1); !errors.Is(err, kerrors.ErrWeakKDFParams) {
		t.Errorf("Expected ErrWeakKDFParams above the iteration cap, got %v", err)
	}
	if _, err := DeriveKey([]byte("pw"), salt[:8], MinKDFIterations); !errors.Is(err, kerrors.ErrWeakKDFParams) {
		t.Errorf("Expected ErrWeakKDFParams for short salt, got %v", err)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	salt, _ := NewSalt()
	key := deriveTestKey(t, "round trip", salt)

	plaintexts := [][]byte{
		{},
		[]byte("a"),
		[]byte(`{"id":1,"title":"Write report","completed":false}`),
		bytes.Repeat([]byte{0x00, 0xff, 0x7f}, 10_000),
	}

	for _, c := range []Cipher{AES256GCM, ChaCha20Poly1305} {
		for _, p := range plaintexts {
			blob, err := EncryptWith(c, p, key)
			if err != nil {
				t.Fatalf("EncryptWith(%s) failed: %v", c, err)
			}
			if len(blob.Nonce) != NonceSize {
				t.Errorf("Expected %d byte nonce, got %d", NonceSize, len(blob.Nonce))
			}

			got, err := Decrypt(blob, key)
			if err != nil {
				t.Fatalf("Decrypt(%s) failed: %v", c, err)
			}
			if !bytes.Equal(got, p) {
				t.Errorf("Round trip mismatch for %s with %d bytes", c, len(p))
			}
		}
	}
}

func TestEncrypt_FreshNonceEachCall(t *testing.T) {
	salt, _ := NewSalt()
	key := deriveTestKey(t, "nonce", salt)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		blob, err := Encrypt([]byte("same plaintext"), key)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if seen[string(blob.Nonce)] {
			t.Fatal("Nonce reused across encryptions")
		}
		seen[string(blob.Nonce)] = true
	}
}

func TestDecrypt_TamperDetection(t *testing.T) {
	salt, _ := NewSalt()
	key := deriveTestKey(t, "tamper", salt)
	plaintext := []byte("do not change me")

	blob, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// Flip every bit of the ciphertext and tag, one at a time.
	for i := 0; i < len(blob.Ciphertext); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := *blob
			tampered.Ciphertext = append([]byte(nil), blob.Ciphertext...)
			tampered.Ciphertext[i] ^= 1 << bit

			got, err := Decrypt(&tampered, key)
			if got != nil {
				t.Fatalf("Decrypt returned plaintext for tampered byte %d bit %d", i, bit)
			}
			var cryptoErr *kerrors.CryptoError
			if !errors.As(err, &cryptoErr) || cryptoErr.Kind != kerrors.Corrupted {
				t.Fatalf("Expected Corrupted CryptoError for byte %d bit %d, got %v", i, bit, err)
			}
		}
	}

	tampered := *blob
	tampered.Nonce = append([]byte(nil), blob.Nonce...)
	tampered.Nonce[0] ^= 0x01
	if _, err := Decrypt(&tampered, key); !errors.Is(err, kerrors.ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication for tampered nonce, got %v", err)
	}

	truncated := *blob
	truncated.Ciphertext = blob.Ciphertext[:4]
	if _, err := Decrypt(&truncated, key); !errors.Is(err, kerrors.ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication for truncated ciphertext, got %v", err)
	}
}

func TestDecrypt_WrongPassphraseRejected(t *testing.T) {
	salt, _ := NewSalt()
	key := deriveTestKey(t, "right passphrase", salt)

	blob, err := Encrypt([]byte("secret"), key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	wrongPassphrases := []string{"wrong passphrase", "right passphrasE", "", "right passphrase "}
	for _, wrong := range wrongPassphrases {
		wrongKey := deriveTestKey(t, wrong, salt)
		got, err := Decrypt(blob, wrongKey)
		if got != nil {
			t.Fatalf("Decrypt returned plaintext for wrong passphrase %q", wrong)
		}
		var cryptoErr *kerrors.CryptoError
		if !errors.As(err, &cryptoErr) || cryptoErr.Kind != kerrors.WrongKey {
			t.Errorf("Expected WrongKey CryptoError for %q, got %v", wrong, err)
		}
	}

	// Without a key check the failure is still rejected, as Corrupted.
	noCheck := *blob
	noCheck.KeyCheck = nil
	wrongKey := deriveTestKey(t, "wrong passphrase", salt)
	if _, err := Decrypt(&noCheck, wrongKey); !errors.Is(err, kerrors.ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication without key check, got %v", err)
	}
}

func TestDecrypt_InvalidKeyLength(t *testing.T) {
	salt, _ := NewSalt()
	key := deriveTestKey(t, "length", salt)
	blob, _ := Encrypt([]byte("x"), key)

	if _, err := Decrypt(blob, key[:16]); !errors.Is(err, kerrors.ErrInvalidKeyLength) {
		t.Errorf("Expected ErrInvalidKeyLength, got %v", err)
	}
	if _, err := Encrypt([]byte("x"), key[:31]); !errors.Is(err, kerrors.ErrInvalidKeyLength) {
		t.Errorf("Expected ErrInvalidKeyLength from Encrypt, got %v", err)
	}
}

func TestParseCipher(t *testing.T) {
	tests := []struct {
		input   string
		want    Cipher
		wantErr bool
	}{
		{"", AES256GCM, false},
		{"aes-256-gcm", AES256GCM, false},
		{"chacha20-poly1305", ChaCha20Poly1305, false},
		{"rot13", "", true},
	}

	for _, tc := range tests {
		got, err := ParseCipher(tc.input)
		if tc.wantErr {
			if !errors.Is(err, kerrors.ErrUnsupportedCipher) {
				t.Errorf("ParseCipher(%q) expected ErrUnsupportedCipher, got %v", tc.input, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseCipher(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
		}
	}
}

func TestZero(t *testing.T) {
	b := []byte("sensitive")
	Zero(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("Byte %d not zeroed", i)
		}
	}
}
