package tokenstore

import (
	"context"
	"sync"
)

// MemoryStore keeps the token pair in process memory
type MemoryStore struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SaveTokens(_ context.Context, accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		return ErrIncompletePair
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessToken = accessToken
	m.refreshToken = refreshToken
	return nil
}

func (m *MemoryStore) GetAccessToken(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken, nil
}

func (m *MemoryStore) GetRefreshToken(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshToken, nil
}

func (m *MemoryStore) ClearTokens(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessToken = ""
	m.refreshToken = ""
	return nil
}

func (m *MemoryStore) IsLoggedIn(context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken != "" && m.refreshToken != "", nil
}
