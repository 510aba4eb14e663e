// Package auth verifies the access tokens shoppers sign in with and extracts the shopper id.
// Tokens that fail verification leave the shopper a guest.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// ErrNoSubject means the token verified but names no shopper, so it cannot key a cart.
var ErrNoSubject = errors.New("token has no subject")

// Verifier checks an access token for the identity middleware.
type Verifier interface {
	Verify(ctx context.Context, tokenString string) (jwt.Token, error)
}

// JWTVerifier verifies tokens against the identity provider's JWKS endpoint.
// The key set is cached for MinInterval. A failed refresh keeps serving the cached set.
type JWTVerifier struct {
	mu sync.RWMutex

	jwksURL  string
	issuer   string
	clientID string

	cachedSet     jwk.Set
	lastRefreshed time.Time
	minInterval   time.Duration
}

// NewJWTVerifier creates a verifier and fetches the key set once. An unreachable
// JWKS endpoint fails startup.
func NewJWTVerifier(ctx context.Context, cfg config.IdP) (*JWTVerifier, error) {
	v := &JWTVerifier{
		jwksURL:     cfg.JwksURL,
		issuer:      cfg.Issuer,
		clientID:    cfg.ClientID,
		minInterval: cfg.MinInterval,
	}
	if _, err := v.getKeySet(ctx); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch failed: %w", err)
	}
	return v, nil
}

// getKeySet retrieves the JWKS set, caching it for subsequent calls.
func (v *JWTVerifier) getKeySet(ctx context.Context) (jwk.Set, error) {
	v.mu.RLock()
	if v.cachedSet != nil && time.Since(v.lastRefreshed) < v.minInterval {
		set := v.cachedSet
		v.mu.RUnlock()
		return set, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	// another goroutine may have refreshed while we waited for the lock
	if v.cachedSet != nil && time.Since(v.lastRefreshed) < v.minInterval {
		return v.cachedSet, nil
	}
	set, err := jwk.Fetch(ctx, v.jwksURL)
	if err != nil {
		if v.cachedSet != nil {
			return v.cachedSet, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", v.jwksURL, err)
	}
	v.cachedSet = set
	v.lastRefreshed = time.Now()
	return v.cachedSet, nil
}

// Verify checks signature, expiry, issuer and that the token was issued to the storefront client.
func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (jwt.Token, error) {
	set, err := v.getKeySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get keyset for verification: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		// authorized party must be the storefront client
		jwt.WithClaimValue("azp", v.clientID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	return token, nil
}

// Subject verifies tokenString and returns its `sub` claim, the shopper id sent to the
// backend as X-User-Id. Callers fall back to guest on any error.
func Subject(ctx context.Context, v Verifier, tokenString string) (string, error) {
	token, err := v.Verify(ctx, tokenString)
	if err != nil {
		return "", err
	}
	subject, ok := token.Subject()
	if !ok || subject == "" {
		return "", ErrNoSubject
	}
	return subject, nil
}
