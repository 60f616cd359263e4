package secrets

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrDecrypt is returned when a ciphertext cannot be unwrapped. The
// store fails closed: no partial plaintext is ever returned.
var ErrDecrypt = errors.New("secret decryption failed")

// Decrypter unwraps an at-rest-encrypted configuration value.
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// AESDecrypter decrypts values sealed with AES-256-GCM under a shared
// master key. The wire format is base64(nonce || sealed).
type AESDecrypter struct {
	key []byte
}

// NewAESDecrypter constructs a decrypter from a base64-encoded master key.
func NewAESDecrypter(masterKey string) (*AESDecrypter, error) {
	if strings.TrimSpace(masterKey) == "" {
		return nil, errors.New("secrets master key is required")
	}
	key, err := base64.StdEncoding.DecodeString(masterKey)
	if err != nil {
		return nil, fmt.Errorf("invalid master key encoding: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("invalid master key length %d", len(key))
	}
	return &AESDecrypter{key: key}, nil
}

func (d *AESDecrypter) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	aesgcm, err := d.aead()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(raw) < aesgcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	nonce, sealed := raw[:aesgcm.NonceSize()], raw[aesgcm.NonceSize():]
	plaintext, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plaintext), nil
}

// Encrypt seals a plaintext value for storage in configuration. Used by
// the "secret encrypt" provisioning command, not by the service itself.
func (d *AESDecrypter) Encrypt(plaintext string) (string, error) {
	aesgcm, err := d.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aesgcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, sealed...)), nil
}

func (d *AESDecrypter) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(d.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
