package secrets

import (
	"context"
	"sync"
)

// Cache memoizes decryption results per ciphertext so shared secrets
// are unwrapped once per process lifetime, not once per request.
// Decryption is a pure function of the ciphertext, so a redundant
// concurrent first access is harmless; the last store wins with an
// identical value.
type Cache struct {
	inner Decrypter
	known sync.Map
}

// NewCache wraps a Decrypter with memoization.
func NewCache(inner Decrypter) *Cache {
	return &Cache{inner: inner}
}

func (c *Cache) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	if cached, ok := c.known.Load(ciphertext); ok {
		return cached.(string), nil
	}

	plaintext, err := c.inner.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", err
	}
	c.known.Store(ciphertext, plaintext)
	return plaintext, nil
}
