// Package token issues and validates opaque verification tokens binding
// a subject id to an expiry instant. Validation is a pure function of
// (token, now); single-use enforcement belongs to the account service.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudacct/accountsvc/config"
)

// ErrInvalid is returned for malformed, tampered, or expired tokens.
var ErrInvalid = errors.New("invalid or expired token")

// Codec encodes a (subject id, expiry) pair into an opaque bearer
// string and back.
type Codec interface {
	// Issue produces a token for subjectID valid until now + TTL.
	Issue(subjectID int64, now time.Time) (string, error)
	// Validate decodes the token and returns the subject id, or
	// ErrInvalid when the token is malformed or now is past expiry.
	Validate(token string, now time.Time) (int64, error)
}

// New constructs the codec selected by configuration.
func New(cfg config.TokenConfig) (Codec, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("token secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Strategy)) {
	case "", "jwt":
		return NewJWTCodec([]byte(cfg.Secret), ttl), nil
	case "aes":
		return NewAESCodec([]byte(cfg.Secret), ttl)
	default:
		return nil, fmt.Errorf("unknown token strategy %q", cfg.Strategy)
	}
}
