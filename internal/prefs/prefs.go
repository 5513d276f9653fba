package prefs

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// KeyTheme holds the "light"/"dark" preference.
const KeyTheme = "theme"

// Store is durable per-client key/value storage.
type Store interface {
	Get(ctx context.Context, clientID, key string) (string, bool, error)
	Set(ctx context.Context, clientID, key, value string) error
}

// Scoped binds a Store to one client.
type Scoped struct {
	Store    Store
	ClientID string
}

func (s Scoped) Get(ctx context.Context, key string) (string, bool, error) {
	if s.Store == nil {
		return "", false, nil
	}
	return s.Store.Get(ctx, s.ClientID, key)
}

func (s Scoped) Set(ctx context.Context, key, value string) error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Set(ctx, s.ClientID, key, value)
}

type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string]string)}
}

func (m *MemoryStore) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[clientID][key]
	return value, ok, nil
}

func (m *MemoryStore) Set(ctx context.Context, clientID, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[clientID] == nil {
		m.values[clientID] = make(map[string]string)
	}
	m.values[clientID][key] = value
	return nil
}

type PGStore struct {
	DB *sql.DB
}

func (p *PGStore) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	const query = `
SELECT value
FROM client_prefs
WHERE client_id = $1 AND key = $2`
	var value string
	err := p.DB.QueryRowContext(ctx, query, clientID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (p *PGStore) Set(ctx context.Context, clientID, key, value string) error {
	const query = `
INSERT INTO client_prefs (client_id, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (client_id, key) DO UPDATE SET
  value = EXCLUDED.value,
  updated_at = now()`
	_, err := p.DB.ExecContext(ctx, query, clientID, key, value)
	return err
}
