package configs

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"
	"github.com/PolarWolf314/tosk/internal/secrets"
	"github.com/PolarWolf314/tosk/internal/utils"
)

// EnvelopeVersion is the on-disk envelope format written by this build.
const EnvelopeVersion = 1

// envelope is the JSON written to config.enc. Binary fields are standard base64.
type envelope struct {
	Version       int    `json:"version"`
	Cipher        string `json:"cipher,omitempty"`
	KDFSalt       string `json:"kdf_salt"`
	KDFIterations int    `json:"kdf_iterations"`
	KeyCheck      string `json:"key_check,omitempty"`
	Nonce         string `json:"nonce"`
	Ciphertext    string `json:"ciphertext"`
}

// Store loads and saves the encrypted configuration file.
type Store struct {
	Path string

	// Iterations is the PBKDF2 iteration count for saves. Zero means
	// secrets.DefaultKDFIterations. Loads always use the file's own count.
	Iterations int

	// Cipher is the AEAD suite for saves. Empty means the default.
	Cipher secrets.Cipher

	writeFile func(path string, data []byte, perm os.FileMode) error
}

// NewStore returns a store for the config file at path.
func NewStore(path string) *Store {
	return &Store{Path: path, writeFile: utils.WriteFileAtomic}
}

// Exists reports whether the config file is present.
func (s *Store) Exists() bool {
	return utils.FileExists(s.Path)
}

// Load decrypts and parses the config file.
//
// Returns a ConfigError of kind Missing if the file does not exist,
// WrongPassword if the master password does not open it, and Malformed if
// the envelope or the decrypted payload cannot be parsed.
func (s *Store) Load(masterPassword []byte) (*Config, error) {
	env, err := s.readEnvelope()
	if err != nil {
		return nil, err
	}

	blob, err := env.blob()
	if err != nil {
		return nil, s.malformed(err)
	}

	key, err := secrets.DeriveKey(masterPassword, blob.Salt, blob.KDFIterations)
	if err != nil {
		return nil, s.malformed(err)
	}
	defer secrets.Zero(key)

	plaintext, err := secrets.Decrypt(blob, key)
	if err != nil {
		var cryptoErr *kerrors.CryptoError
		if errors.As(err, &cryptoErr) && cryptoErr.Kind == kerrors.Corrupted && len(blob.KeyCheck) > 0 {
			// The key check matched, so the password is right and the file is damaged.
			return nil, s.malformed(err)
		}
		return nil, &kerrors.ConfigError{Kind: kerrors.WrongPassword, Path: s.Path, Err: err}
	}
	defer secrets.Zero(plaintext)

	cfg, err := parsePayload(plaintext)
	if err != nil {
		return nil, s.malformed(err)
	}
	return cfg, nil
}

// Save encrypts cfg under masterPassword and atomically replaces the file.
// The salt of an existing readable file is reused; otherwise a new one is generated.
func (s *Store) Save(cfg *Config, masterPassword []byte) error {
	if cfg == nil {
		return fmt.Errorf("cannot save a nil config")
	}
	if len(masterPassword) == 0 {
		return fmt.Errorf("master password cannot be empty")
	}

	salt, err := s.existingSalt()
	if err != nil {
		return err
	}

	iterations := s.Iterations
	if iterations == 0 {
		iterations = secrets.DefaultKDFIterations
	}
	cipherName := s.Cipher
	if cipherName == "" {
		cipherName = secrets.DefaultCipher
	}

	key, err := secrets.DeriveKey(masterPassword, salt, iterations)
	if err != nil {
		return fmt.Errorf("failed to derive master key: %w", err)
	}
	defer secrets.Zero(key)

	payload, err := marshalPayload(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	defer secrets.Zero(payload)

	blob, err := secrets.EncryptWith(cipherName, payload, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt config: %w", err)
	}

	data, err := json.MarshalIndent(envelope{
		Version:       EnvelopeVersion,
		Cipher:        string(blob.Cipher),
		KDFSalt:       base64.StdEncoding.EncodeToString(salt),
		KDFIterations: iterations,
		KeyCheck:      base64.StdEncoding.EncodeToString(blob.KeyCheck),
		Nonce:         base64.StdEncoding.EncodeToString(blob.Nonce),
		Ciphertext:    base64.StdEncoding.EncodeToString(blob.Ciphertext),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config envelope: %w", err)
	}

	write := s.writeFile
	if write == nil {
		write = utils.WriteFileAtomic
	}
	if err := write(s.Path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (s *Store) readEnvelope() (*envelope, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &kerrors.ConfigError{Kind: kerrors.Missing, Path: s.Path}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", s.Path, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, s.malformed(fmt.Errorf("envelope is not valid JSON: %w", err))
	}
	if env.Version < 1 || env.Version > EnvelopeVersion {
		return nil, s.malformed(fmt.Errorf("unsupported envelope version %d", env.Version))
	}
	return &env, nil
}

// existingSalt returns the salt of the current file, or a new salt if
// there is no usable file.
func (s *Store) existingSalt() ([]byte, error) {
	env, err := s.readEnvelope()
	if err == nil {
		salt, decodeErr := base64.StdEncoding.DecodeString(env.KDFSalt)
		if decodeErr == nil && len(salt) >= secrets.SaltSize {
			return salt, nil
		}
	} else {
		var cfgErr *kerrors.ConfigError
		if !errors.As(err, &cfgErr) {
			return nil, err
		}
	}
	return secrets.NewSalt()
}

func (s *Store) malformed(err error) error {
	return &kerrors.ConfigError{Kind: kerrors.Malformed, Path: s.Path, Err: err}
}

func (e *envelope) blob() (*secrets.EncryptedBlob, error) {
	c, err := secrets.ParseCipher(e.Cipher)
	if err != nil {
		return nil, err
	}

	decode := func(field, value string) ([]byte, error) {
		b, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("%s is not valid base64: %w", field, err)
		}
		return b, nil
	}

	salt, err := decode("kdf_salt", e.KDFSalt)
	if err != nil {
		return nil, err
	}
	keyCheck, err := decode("key_check", e.KeyCheck)
	if err != nil {
		return nil, err
	}
	nonce, err := decode("nonce", e.Nonce)
	if err != nil {
		return nil, err
	}
	ciphertext, err := decode("ciphertext", e.Ciphertext)
	if err != nil {
		return nil, err
	}

	return &secrets.EncryptedBlob{
		Cipher:        c,
		Salt:          salt,
		KDFIterations: e.KDFIterations,
		KeyCheck:      keyCheck,
		Nonce:         nonce,
		Ciphertext:    ciphertext,
	}, nil
}
