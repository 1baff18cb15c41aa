package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

const jwksCacheTTL = 1 * time.Hour

type cachedKeySet struct {
	keys      jwk.Set
	expiresAt time.Time
}

// JWKSManager fetches provider signing keys and caches them per JWKS URL
// so token verification does not hit the provider on every request.
type JWKSManager struct {
	mu         sync.RWMutex
	cache      map[string]cachedKeySet
	httpClient *http.Client
	ttl        time.Duration
}

func NewJWKSManager() *JWKSManager {
	return &JWKSManager{
		cache:      make(map[string]cachedKeySet),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ttl:        jwksCacheTTL,
	}
}

// GetJWKS returns the key set for jwksURL, fetching it if the cached
// copy is missing or stale.
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.RLock()
	entry, ok := m.cache[jwksURL]
	m.mu.RUnlock()

	if ok && entry.keys != nil && time.Now().Before(entry.expiresAt) {
		return entry.keys, nil
	}

	keys, err := m.fetch(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	m.mu.Lock()
	m.cache[jwksURL] = cachedKeySet{keys: keys, expiresAt: time.Now().Add(m.ttl)}
	m.mu.Unlock()

	return keys, nil
}

func (m *JWKSManager) fetch(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

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
