package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity a verified token asserts. The room never stores
// anything beyond these fields per socket.
type Claims struct {
	DisplayName string `json:"name"`
	AvatarSeed  string `json:"avatarSeed"`
	jwt.RegisteredClaims
}

// UserID is the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// Verifier checks a bearer token and returns the identity it asserts.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrUnknownKey   = errors.New("token signed with unknown key")
)

// HMACVerifier validates HS256 tokens against a shared secret. Used for
// development and tests; production verifies against a JWKS endpoint.
type HMACVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewHMACVerifier builds a shared-secret verifier.
func NewHMACVerifier(secret []byte, issuer, audience string) *HMACVerifier {
	return &HMACVerifier{secret: secret, issuer: issuer, audience: audience}
}

// Verify parses and validates the token.
func (v *HMACVerifier) Verify(_ context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	opts := parseOptions(v.issuer, v.audience, jwt.SigningMethodHS256.Name)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parseOptions(issuer, audience, alg string) []jwt.ParserOption {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{alg})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return opts
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	default:
		return ErrInvalidToken
	}
}
