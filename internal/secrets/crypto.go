package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the symmetric key length (256 bits).
	KeySize = 32

	// NonceSize is the AEAD nonce length (96 bits) for every supported cipher.
	NonceSize = 12

	// SaltSize is the length of a freshly generated KDF salt.
	SaltSize = 16

	// KeyCheckSize is the length of the key verifier stored next to each blob.
	KeyCheckSize = 8

	// MinKDFIterations is the lowest PBKDF2 iteration count accepted.
	MinKDFIterations = 100_000

	// MaxKDFIterations bounds the count read from a file or blob header, so
	// a damaged or hostile header cannot stall a load for minutes.
	MaxKDFIterations = 10_000_000

	// DefaultKDFIterations is the PBKDF2-HMAC-SHA256 iteration count used
	// for new blobs. It takes a few hundred milliseconds on a laptop.
	DefaultKDFIterations = 600_000
)

// Cipher names an AEAD suite.
type Cipher string

const (
	AES256GCM        Cipher = "aes-256-gcm"
	ChaCha20Poly1305 Cipher = "chacha20-poly1305"

	DefaultCipher = AES256GCM
)

var keyCheckLabel = []byte("tosk key check v1")

// EncryptedBlob is the output of one encryption call.
// Salt and KDFIterations are filled in by callers that derived the key from a passphrase.
type EncryptedBlob struct {
	Cipher        Cipher
	Salt          []byte
	KDFIterations int
	// KeyCheck lets Decrypt tell a wrong key apart from a damaged ciphertext.
	KeyCheck []byte
	Nonce    []byte
	// Ciphertext includes the 16-byte authentication tag.
	Ciphertext []byte
}

// NewSalt generates a random KDF salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a 256-bit key from a passphrase with PBKDF2-HMAC-SHA256.
// The same inputs always yield the same key.
func DeriveKey(passphrase, salt []byte, iterations int) ([]byte, error) {
	if iterations < MinKDFIterations {
		return nil, fmt.Errorf("%w: %d iterations (minimum %d)", kerrors.ErrWeakKDFParams, iterations, MinKDFIterations)
	}
	if iterations > MaxKDFIterations {
		return nil, fmt.Errorf("%w: %d iterations (maximum %d)", kerrors.ErrWeakKDFParams, iterations, MaxKDFIterations)
	}
	if len(salt) < SaltSize {
		return nil, fmt.Errorf("%w: salt is %d bytes (minimum %d)", kerrors.ErrWeakKDFParams, len(salt), SaltSize)
	}
	return pbkdf2.Key(passphrase, salt, iterations, KeySize, sha256.New), nil
}

// Encrypt seals plaintext with the default cipher.
func Encrypt(plaintext, key []byte) (*EncryptedBlob, error) {
	return EncryptWith(DefaultCipher, plaintext, key)
}

// EncryptWith seals plaintext under key with a fresh random nonce.
func EncryptWith(c Cipher, plaintext, key []byte) (*EncryptedBlob, error) {
	aead, err := newAEAD(c, key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &EncryptedBlob{
		Cipher:     c,
		KeyCheck:   keyCheck(key),
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// Decrypt opens a blob. It never returns plaintext unless the tag verifies.
//
// A key that does not match the blob's key check fails with a WrongKey
// CryptoError. Any other failure, including a tag mismatch, is Corrupted.
// Both match ErrAuthentication.
func Decrypt(blob *EncryptedBlob, key []byte) ([]byte, error) {
	if blob == nil {
		return nil, &kerrors.CryptoError{Kind: kerrors.Corrupted, Reason: "empty blob"}
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d bytes", kerrors.ErrInvalidKeyLength, KeySize, len(key))
	}

	c := blob.Cipher
	if c == "" {
		c = DefaultCipher
	}
	aead, err := newAEAD(c, key)
	if err != nil {
		return nil, &kerrors.CryptoError{Kind: kerrors.Corrupted, Reason: err.Error()}
	}

	if len(blob.Nonce) != aead.NonceSize() {
		return nil, &kerrors.CryptoError{Kind: kerrors.Corrupted, Reason: "invalid nonce length"}
	}
	if len(blob.Ciphertext) < aead.Overhead() {
		return nil, &kerrors.CryptoError{Kind: kerrors.Corrupted, Reason: "ciphertext too short"}
	}
	if len(blob.KeyCheck) > 0 && !hmac.Equal(blob.KeyCheck, keyCheck(key)) {
		return nil, &kerrors.CryptoError{Kind: kerrors.WrongKey}
	}

	plaintext, err := aead.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return nil, &kerrors.CryptoError{Kind: kerrors.Corrupted, Reason: "authentication tag mismatch"}
	}
	return plaintext, nil
}

// Zero overwrites b. Use it on keys and passphrases once they are no longer needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func newAEAD(c Cipher, key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d bytes", kerrors.ErrInvalidKeyLength, KeySize, len(key))
	}

	switch c {
	case AES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: %q", kerrors.ErrUnsupportedCipher, c)
	}
}

// ParseCipher validates a cipher name from a file or setting.
func ParseCipher(name string) (Cipher, error) {
	switch Cipher(name) {
	case "":
		return DefaultCipher, nil
	case AES256GCM, ChaCha20Poly1305:
		return Cipher(name), nil
	default:
		return "", fmt.Errorf("%w: %q", kerrors.ErrUnsupportedCipher, name)
	}
}

func keyCheck(key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(keyCheckLabel)
	return mac.Sum(nil)[:KeyCheckSize]
}
