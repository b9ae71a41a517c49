// Package crypto seals secrets stored at rest, such as push subscription keys.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMissingKey         = errors.New("encryption key is required")
	ErrInvalidKey         = errors.New("encryption key must be 32 bytes for AES-256")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// Sealer encrypts a value bound to a context string. Opening with a different
// context fails, so a ciphertext copied onto another record cannot be read back.
type Sealer interface {
	Seal(plaintext, boundTo string) (string, error)
	Open(ciphertext, boundTo string) (string, error)
}

type gcmSealer struct {
	aead cipher.AEAD
}

// NewSealer creates an AES-256-GCM sealer from a 32-byte key.
func NewSealer(key string) (Sealer, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &gcmSealer{aead: aead}, nil
}

func (s *gcmSealer) Seal(plaintext, boundTo string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(boundTo))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *gcmSealer) Open(ciphertext, boundTo string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize+s.aead.Overhead() {
		return "", ErrCiphertextTooShort
	}

	plaintext, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(boundTo))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}
