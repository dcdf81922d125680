package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of an identity token.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies identity tokens with a process-wide secret.
// It is immutable after construction and safe for concurrent use.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

func NewTokenCodec(secret, algorithm string) (*TokenCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token codec: secret is required")
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	var method jwt.SigningMethod
	switch strings.ToUpper(algorithm) {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("token codec: unsupported algorithm %q", algorithm)
	}
	return &TokenCodec{
		secret: []byte(secret),
		method: method,
		now:    time.Now,
	}, nil
}

// WithClock returns a copy of the codec that reads time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// Encode mints a token for subject that expires after validity.
func (c *TokenCodec) Encode(subject string, validity time.Duration) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(validity)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Decode verifies the signature and expiry of token. Every failure is
// reported as ErrTokenRejected.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenRejected
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrTokenRejected
	}
	return claims, nil
}
