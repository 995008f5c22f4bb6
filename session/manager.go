// Package session mints opaque tokens for resolved identities and
// resolves them back until they expire, 24 hours after creation by
// default. Tokens live in an in-process bigcache, a restart logs
// everyone out, which is fine: redoing the login is always possible.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/avelar/confidant/resolver"
)

type (
	Manager struct {
		cache *bigcache.BigCache
		ttl   time.Duration
		now   func() time.Time
	}

	NotFound struct{}

	// envelope carries the creation instant alongside the identity so
	// expiry stays absolute even if the cache entry is rewritten.
	envelope struct {
		Identity  resolver.Identity `json:"identity"`
		CreatedAt time.Time         `json:"created_at"`
	}
)

const DefaultTTL = 24 * time.Hour

func (NotFound) Error() string { return "session not found" }

func NewManager(ttl time.Duration) (*Manager, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache, err := bigcache.NewBigCache(bigcache.DefaultConfig(ttl))
	if err != nil {
		return nil, fmt.Errorf("unable to create session cache, cause %w", err)
	}
	return &Manager{cache: cache, ttl: ttl, now: time.Now}, nil
}

// Create mints a fresh token for the given identity. 32 bytes of
// crypto/rand means 256 bits of entropy per token.
func (m *Manager) Create(ctx context.Context, id *resolver.Identity) (string, error) {
	var buf [32]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		return "", fmt.Errorf("unable to mint session token, cause %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf[:])
	err = m.put(token, envelope{Identity: *id, CreatedAt: m.now()})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Resolve maps a token back to the identity snapshot it was minted
// for. Unknown and expired tokens both come back as NotFound.
func (m *Manager) Resolve(ctx context.Context, token string) (*resolver.Identity, error) {
	buf, err := m.cache.Get(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, NotFound{}
	} else if err != nil {
		return nil, fmt.Errorf("unable to read session store, cause %w", err)
	}
	var env envelope
	err = json.Unmarshal(buf, &env)
	if err != nil {
		return nil, fmt.Errorf("unable to decode session entry, cause %w", err)
	}
	if m.now().Sub(env.CreatedAt) >= m.ttl {
		// bigcache evicts lazily, enforce the absolute expiry here
		m.cache.Delete(token)
		return nil, NotFound{}
	}
	return &env.Identity, nil
}

// Update replaces the identity snapshot behind an existing token,
// keeping its original expiry instant.
func (m *Manager) Update(ctx context.Context, token string, id *resolver.Identity) error {
	buf, err := m.cache.Get(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return NotFound{}
	} else if err != nil {
		return fmt.Errorf("unable to read session store, cause %w", err)
	}
	var env envelope
	err = json.Unmarshal(buf, &env)
	if err != nil {
		return fmt.Errorf("unable to decode session entry, cause %w", err)
	}
	env.Identity = *id
	return m.put(token, env)
}

func (m *Manager) Invalidate(ctx context.Context, token string) error {
	err := m.cache.Delete(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (m *Manager) put(token string, env envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("unable to encode session entry, cause %w", err)
	}
	err = m.cache.Set(token, body)
	if err != nil {
		return fmt.Errorf("unable to write session store, cause %w", err)
	}
	return nil
}
