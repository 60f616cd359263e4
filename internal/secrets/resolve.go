package secrets

import (
	"context"
	"fmt"

	"github.com/cloudacct/accountsvc/config"
)

// ResolveConfig decrypts every *_ENCRYPTED configuration value in place.
// Plaintext fields already set are left alone; a set ciphertext always
// wins over its plaintext counterpart. Any failure aborts startup.
func ResolveConfig(ctx context.Context, d Decrypter, cfg *config.Config) error {
	fields := []struct {
		name       string
		ciphertext string
		target     *string
	}{
		{"database password", cfg.Database.PasswordEncrypted, &cfg.Database.Password},
		{"smtp password", cfg.Mail.PasswordEncrypted, &cfg.Mail.Password},
		{"token secret", cfg.Token.SecretEncrypted, &cfg.Token.Secret},
	}

	for _, f := range fields {
		if f.ciphertext == "" {
			continue
		}
		plaintext, err := d.Decrypt(ctx, f.ciphertext)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f.name, err)
		}
		*f.target = plaintext
	}
	return nil
}
