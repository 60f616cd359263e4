package secrets

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudacct/accountsvc/config"
)

func testMasterKey(t *testing.T) string {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestAESDecrypterRoundTrip(t *testing.T) {
	decrypter, err := NewAESDecrypter(testMasterKey(t))
	require.NoError(t, err)

	ciphertext, err := decrypter.Encrypt("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", ciphertext)

	plaintext, err := decrypter.Decrypt(context.Background(), ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plaintext)
}

func TestAESDecrypterFailsClosed(t *testing.T) {
	decrypter, err := NewAESDecrypter(testMasterKey(t))
	require.NoError(t, err)

	ciphertext, err := decrypter.Encrypt("hunter2")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name       string
		ciphertext string
	}{
		{"tampered", tampered},
		{"not base64", "%%%"},
		{"too short", base64.StdEncoding.EncodeToString([]byte("tiny"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plaintext, err := decrypter.Decrypt(context.Background(), tt.ciphertext)
			assert.ErrorIs(t, err, ErrDecrypt)
			assert.Empty(t, plaintext)
		})
	}
}

func TestAESDecrypterWrongKey(t *testing.T) {
	first, err := NewAESDecrypter(testMasterKey(t))
	require.NoError(t, err)
	second, err := NewAESDecrypter(testMasterKey(t))
	require.NoError(t, err)

	ciphertext, err := first.Encrypt("hunter2")
	require.NoError(t, err)

	_, err = second.Decrypt(context.Background(), ciphertext)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestNewAESDecrypterRejectsBadKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"not base64", "!!!"},
		{"wrong length", base64.StdEncoding.EncodeToString([]byte("short"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAESDecrypter(tt.key)
			assert.Error(t, err)
		})
	}
}

type countingDecrypter struct {
	inner Decrypter
	calls int
}

func (d *countingDecrypter) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	d.calls++
	return d.inner.Decrypt(ctx, ciphertext)
}

func TestCacheMemoizes(t *testing.T) {
	decrypter, err := NewAESDecrypter(testMasterKey(t))
	require.NoError(t, err)
	counting := &countingDecrypter{inner: decrypter}
	cache := NewCache(counting)

	ciphertext, err := decrypter.Encrypt("shared-secret")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		plaintext, err := cache.Decrypt(context.Background(), ciphertext)
		require.NoError(t, err)
		assert.Equal(t, "shared-secret", plaintext)
	}
	assert.Equal(t, 1, counting.calls)
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	decrypter, err := NewAESDecrypter(testMasterKey(t))
	require.NoError(t, err)
	counting := &countingDecrypter{inner: decrypter}
	cache := NewCache(counting)

	for i := 0; i < 2; i++ {
		_, err := cache.Decrypt(context.Background(), "%%%")
		assert.ErrorIs(t, err, ErrDecrypt)
	}
	assert.Equal(t, 2, counting.calls)
}

func TestResolveConfig(t *testing.T) {
	decrypter, err := NewAESDecrypter(testMasterKey(t))
	require.NoError(t, err)

	dbPassword, err := decrypter.Encrypt("db-pass")
	require.NoError(t, err)
	smtpPassword, err := decrypter.Encrypt("smtp-pass")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Database.PasswordEncrypted = dbPassword
	cfg.Mail.PasswordEncrypted = smtpPassword
	cfg.Token.Secret = "already-plaintext"

	require.NoError(t, ResolveConfig(context.Background(), decrypter, cfg))

	assert.Equal(t, "db-pass", cfg.Database.Password)
	assert.Equal(t, "smtp-pass", cfg.Mail.Password)
	assert.Equal(t, "already-plaintext", cfg.Token.Secret)
}

func TestResolveConfigFailsOnBadCiphertext(t *testing.T) {
	decrypter, err := NewAESDecrypter(testMasterKey(t))
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Token.SecretEncrypted = "%%%"

	err = ResolveConfig(context.Background(), decrypter, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token secret")
	assert.Empty(t, cfg.Token.Secret)
}
