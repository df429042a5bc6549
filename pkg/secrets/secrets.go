// Package secrets implements the Config/Secrets façade's three-source
// precedence (§4.K): an in-memory override for tests, a pluggable secret
// store, and environment variable fallback.
package secrets

import (
	"context"
	"os"
	"sync"
	"time"
)

// Store looks up a named secret from a backing secret manager. Production
// deployments provide a concrete implementation; FileStore and EnvStore
// below cover the common cases.
type Store interface {
	Get(ctx context.Context, name string) (string, bool, error)
}

// EnvStore resolves a secret name directly as an environment variable.
// This is the default store when no dedicated secret manager is
// configured, matching the teacher's own `GEMINI_API_KEY`-style lookups.
type EnvStore struct{}

// Get implements Store.
func (EnvStore) Get(_ context.Context, name string) (string, bool, error) {
	v, ok := os.LookupEnv(name)
	return v, ok, nil
}

const negativeCacheTTL = 30 * time.Second

type cacheEntry struct {
	value     string
	found     bool
	expiresAt time.Time // zero for positive entries, which never expire
}

// Resolver implements the lookup precedence: in-memory overrides (for
// tests) first, then the configured Store, then the process environment.
// Positive lookups are cached for the process lifetime; negative lookups
// are cached briefly so a retry storm against a missing secret doesn't
// hammer the backing store.
type Resolver struct {
	store     Store
	overrides sync.Map // name -> string
	cache     sync.Map // name -> cacheEntry
}

// NewResolver creates a Resolver backed by store. A nil store falls back
// to EnvStore.
func NewResolver(store Store) *Resolver {
	if store == nil {
		store = EnvStore{}
	}
	return &Resolver{store: store}
}

// SetOverride forces name to resolve to value regardless of the backing
// store, for test setup. Passing an empty value clears any prior override.
func (r *Resolver) SetOverride(name, value string) {
	if value == "" {
		r.overrides.Delete(name)
		return
	}
	r.overrides.Store(name, value)
}

// Get resolves a secret by name.
func (r *Resolver) Get(ctx context.Context, name string) (string, bool, error) {
	if v, ok := r.overrides.Load(name); ok {
		return v.(string), true, nil
	}

	if v, ok := r.cache.Load(name); ok {
		entry := v.(cacheEntry)
		if entry.found || time.Now().Before(entry.expiresAt) {
			return entry.value, entry.found, nil
		}
	}

	value, found, err := r.store.Get(ctx, name)
	if err != nil {
		return "", false, err
	}
	if !found {
		if envVal, ok := os.LookupEnv(name); ok {
			value, found = envVal, true
		}
	}

	entry := cacheEntry{value: value, found: found}
	if !found {
		entry.expiresAt = time.Now().Add(negativeCacheTTL)
	}
	r.cache.Store(name, entry)

	return value, found, nil
}

// MustGet resolves a secret, returning an empty string if it's absent.
// Used for optional integrations where a missing secret just disables a
// feature rather than failing startup.
func (r *Resolver) MustGet(ctx context.Context, name string) string {
	v, _, _ := r.Get(ctx, name)
	return v
}
