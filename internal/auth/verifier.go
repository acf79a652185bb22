// Package auth verifies bearer tokens issued by the platform's identity
// provider and extracts the claims this service acts on. Account lifecycle
// and login flows live elsewhere; this package only checks signatures.
package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const jwksCacheTTL = time.Hour

// Claims are the token claims this service consumes.
type Claims struct {
	Sub   string
	Email string
	Name  string
	Role  string
}

// Verifier verifies JWT tokens against a JWKS endpoint, caching the key set.
type Verifier struct {
	issuer  string
	jwksURL string

	mu      sync.RWMutex
	keys    jwk.Set
	expires time.Time
}

// NewVerifier creates a verifier for tokens from the given issuer.
func NewVerifier(issuer, jwksURL string) *Verifier {
	return &Verifier{issuer: issuer, jwksURL: jwksURL}
}

// Verify checks the token signature, validity window, and issuer, and
// returns the extracted claims.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	keys, err := v.keySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(tokenString), jwt.WithKeySet(keys), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	if token.Issuer() != v.issuer {
		return nil, fmt.Errorf("token issuer mismatch: expected %s, got %s", v.issuer, token.Issuer())
	}

	claims := &Claims{Sub: token.Subject()}
	claims.Email = stringClaim(token, "email")
	claims.Name = stringClaim(token, "name")
	claims.Role = stringClaim(token, "role")

	return claims, nil
}

func stringClaim(token jwt.Token, name string) string {
	if v, ok := token.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (v *Verifier) keySet(ctx context.Context) (jwk.Set, error) {
	v.mu.RLock()
	if v.keys != nil && time.Now().Before(v.expires) {
		keys := v.keys
		v.mu.RUnlock()
		return keys, nil
	}
	v.mu.RUnlock()

	keys, err := fetchJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.keys = keys
	v.expires = time.Now().Add(jwksCacheTTL)
	v.mu.Unlock()

	return keys, nil
}

func fetchJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}

	return keys, nil
}
