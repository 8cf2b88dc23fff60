package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"
)

// jwksDocument is the JSON shape of a JWKS endpoint response.
type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSVerifier validates RS256 tokens against keys published at a JWKS
// endpoint. Parsed keys live in a process-lifetime LRU shared by every room,
// never in actor state, so hibernated rooms pay no refetch on wake.
type JWKSVerifier struct {
	url      string
	issuer   string
	audience string
	client   *http.Client
	keys     *lru.Cache[string, *rsa.PublicKey]

	mu          sync.Mutex
	lastRefresh time.Time
}

const jwksRefreshCooldown = time.Minute

// NewJWKSVerifier builds a verifier for the given endpoint. cacheSize bounds
// the number of cached keys.
func NewJWKSVerifier(url, issuer, audience string, cacheSize int) (*JWKSVerifier, error) {
	if cacheSize <= 0 {
		cacheSize = 16
	}
	cache, err := lru.New[string, *rsa.PublicKey](cacheSize)
	if err != nil {
		return nil, err
	}
	return &JWKSVerifier{
		url:      url,
		issuer:   issuer,
		audience: audience,
		client:   &http.Client{Timeout: 10 * time.Second},
		keys:     cache,
	}, nil
}

// Verify parses and validates the token, refreshing the key set at most once
// per cooldown window when an unknown kid appears.
func (v *JWKSVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	opts := parseOptions(v.issuer, v.audience, jwt.SigningMethodRS256.Name)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownKey
		}
		if key, ok := v.keys.Get(kid); ok {
			return key, nil
		}
		if err := v.refresh(ctx); err != nil {
			return nil, err
		}
		if key, ok := v.keys.Get(kid); ok {
			return key, nil
		}
		return nil, ErrUnknownKey
	}, opts...)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// refresh refetches the JWKS document, rate-limited by the cooldown so a
// flood of bad tokens cannot hammer the identity service.
func (v *JWKSVerifier) refresh(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if time.Since(v.lastRefresh) < jwksRefreshCooldown {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			continue
		}
		v.keys.Add(k.Kid, pub)
	}
	v.lastRefresh = time.Now()
	return nil
}

func parseRSAKey(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 1 {
		return nil, fmt.Errorf("bad exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
