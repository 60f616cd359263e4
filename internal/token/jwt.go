package token

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTCodec encodes the pair as HS256-signed registered claims. The
// expiry travels in cleartext inside the payload; the signature keeps
// the pair tamper-proof without requiring decryption to validate.
type JWTCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTCodec(secret []byte, ttl time.Duration) *JWTCodec {
	return &JWTCodec{secret: secret, ttl: ttl}
}

func (c *JWTCodec) Issue(subjectID int64, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(subjectID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

func (c *JWTCodec) Validate(token string, now time.Time) (int64, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !parsed.Valid {
		return 0, ErrInvalid
	}

	subject, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || subject < 1 {
		return 0, ErrInvalid
	}
	return subject, nil
}
