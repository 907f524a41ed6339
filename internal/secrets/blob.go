package secrets

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"
)

// Sealed backups are stored as base64 text of:
//
//	magic(7) | cipher id(1) | iterations(4, big endian) | salt(16) | key check(8) | nonce(12) | ciphertext+tag
var blobMagic = []byte("TOSKBK1")

const blobHeaderSize = 7 + 1 + 4 + SaltSize + KeyCheckSize + NonceSize

var cipherIDs = map[Cipher]byte{
	AES256GCM:        1,
	ChaCha20Poly1305: 2,
}

// SealBlob encrypts plaintext under a key derived from passphrase with a new
// salt, and returns the self-contained base64 encoding.
func SealBlob(plaintext, passphrase []byte, iterations int, c Cipher) ([]byte, error) {
	if c == "" {
		c = DefaultCipher
	}
	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}

	key, err := DeriveKey(passphrase, salt, iterations)
	if err != nil {
		return nil, err
	}
	defer Zero(key)

	blob, err := EncryptWith(c, plaintext, key)
	if err != nil {
		return nil, err
	}
	blob.Salt = salt
	blob.KDFIterations = iterations

	raw, err := MarshalBlob(blob)
	if err != nil {
		return nil, err
	}

	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

// OpenBlob reverses SealBlob.
func OpenBlob(encoded, passphrase []byte) ([]byte, error) {
	raw, ok := decodeSealed(encoded)
	if !ok {
		return nil, &kerrors.CryptoError{Kind: kerrors.Corrupted, Reason: "missing backup header"}
	}

	blob, err := UnmarshalBlob(raw)
	if err != nil {
		return nil, err
	}

	key, err := DeriveKey(passphrase, blob.Salt, blob.KDFIterations)
	if err != nil {
		return nil, &kerrors.CryptoError{Kind: kerrors.Corrupted, Reason: err.Error()}
	}
	defer Zero(key)

	return Decrypt(blob, key)
}

// IsSealedBlob reports whether data is a base64 blob produced by SealBlob.
func IsSealedBlob(data []byte) bool {
	_, ok := decodeSealed(data)
	return ok
}

func decodeSealed(data []byte) ([]byte, bool) {
	trimmed := bytes.TrimSpace(data)
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(trimmed)))
	n, err := base64.StdEncoding.Decode(raw, trimmed)
	if err != nil {
		return nil, false
	}
	raw = raw[:n]
	if len(raw) < blobHeaderSize || !bytes.HasPrefix(raw, blobMagic) {
		return nil, false
	}
	return raw, true
}

// MarshalBlob encodes a blob in the binary backup layout.
func MarshalBlob(blob *EncryptedBlob) ([]byte, error) {
	id, ok := cipherIDs[blob.Cipher]
	if !ok {
		return nil, fmt.Errorf("%w: %q", kerrors.ErrUnsupportedCipher, blob.Cipher)
	}
	if len(blob.Salt) != SaltSize || len(blob.KeyCheck) != KeyCheckSize || len(blob.Nonce) != NonceSize {
		return nil, fmt.Errorf("blob has invalid field lengths")
	}
	if blob.KDFIterations <= 0 || blob.KDFIterations > MaxKDFIterations {
		return nil, fmt.Errorf("blob has invalid iteration count %d", blob.KDFIterations)
	}

	out := make([]byte, 0, blobHeaderSize+len(blob.Ciphertext))
	out = append(out, blobMagic...)
	out = append(out, id)
	out = binary.BigEndian.AppendUint32(out, uint32(blob.KDFIterations))
	out = append(out, blob.Salt...)
	out = append(out, blob.KeyCheck...)
	out = append(out, blob.Nonce...)
	out = append(out, blob.Ciphertext...)
	return out, nil
}

// UnmarshalBlob decodes the binary backup layout.
func UnmarshalBlob(raw []byte) (*EncryptedBlob, error) {
	if len(raw) < blobHeaderSize || !bytes.HasPrefix(raw, blobMagic) {
		return nil, &kerrors.CryptoError{Kind: kerrors.Corrupted, Reason: "missing backup header"}
	}

	offset := len(blobMagic)
	var c Cipher
	for name, id := range cipherIDs {
		if id == raw[offset] {
			c = name
		}
	}
	if c == "" {
		return nil, &kerrors.CryptoError{Kind: kerrors.Corrupted, Reason: "unknown cipher id"}
	}
	offset++

	iterations := binary.BigEndian.Uint32(raw[offset : offset+4])
	offset += 4
	if iterations < MinKDFIterations || iterations > MaxKDFIterations {
		return nil, &kerrors.CryptoError{Kind: kerrors.Corrupted, Reason: fmt.Sprintf("iteration count %d out of range", iterations)}
	}

	// Copy so the blob does not alias the caller's buffer.
	take := func(n int) []byte {
		b := append([]byte(nil), raw[offset:offset+n]...)
		offset += n
		return b
	}

	blob := &EncryptedBlob{
		Cipher:        c,
		KDFIterations: int(iterations),
	}
	blob.Salt = take(SaltSize)
	blob.KeyCheck = take(KeyCheckSize)
	blob.Nonce = take(NonceSize)
	blob.Ciphertext = take(len(raw) - offset)
	return blob, nil
}
