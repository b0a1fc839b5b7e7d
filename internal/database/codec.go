package database

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Codec transforms message and summary text on its way in and out of the
// store. It is applied symmetrically on write and read.
type Codec interface {
	// Encode transforms plaintext for storage.
	Encode(plaintext string) (string, error)

	// Decode reverses Encode. Implementations must return input that was
	// never encoded unchanged, so pre-encryption rows stay readable.
	Decode(stored string) (string, error)
}

// NewCodec returns an AES-256-GCM codec when key is non-empty, and a
// passthrough codec otherwise. The cipher key is derived from the configured
// key with PBKDF2-SHA256.
func NewCodec(key string) (Codec, error) {
	if strings.TrimSpace(key) == "" {
		slog.Warn("No encryption key configured, storing text unencrypted")
		return plainCodec{}, nil
	}
	return newAESCodec(strings.TrimSpace(key))
}

type plainCodec struct{}

func (plainCodec) Encode(plaintext string) (string, error) { return plaintext, nil }
func (plainCodec) Decode(stored string) (string, error)    { return stored, nil }

// encPrefix marks encrypted values so Decode can tell tokens from legacy
// plaintext rows.
const encPrefix = "enc1:"

const (
	kdfIterations = 100_000
	kdfSalt       = "whatsapp-monitor-salt"
)

type aesCodec struct {
	aead cipher.AEAD
}

func newAESCodec(key string) (*aesCodec, error) {
	derived := pbkdf2.Key([]byte(key), []byte(kdfSalt), kdfIterations, 32, sha256.New)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	slog.Info("At-rest encryption enabled")
	return &aesCodec{aead: aead}, nil
}

func (c *aesCodec) Encode(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *aesCodec) Decode(stored string) (string, error) {
	if !strings.HasPrefix(stored, encPrefix) {
		// Legacy plaintext row, stored before encryption was enabled.
		return stored, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encPrefix))
	if err != nil {
		return "", fmt.Errorf("malformed encrypted value: %w", err)
	}
	if len(raw) < c.aead.NonceSize() {
		return "", fmt.Errorf("malformed encrypted value: too short")
	}

	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt value: %w", err)
	}
	return string(plaintext), nil
}
