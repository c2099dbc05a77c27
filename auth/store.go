package auth

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/habedi/waconsole/db"
	"github.com/rs/zerolog/log"
)

// Storage keys shared with the web console.
const (
	TokenKey   = "authToken"
	ProfileKey = "userData"
)

// TokenStore keeps the bearer token in one of two stores: a persistent one
// ("remember me") and a session-scoped one. The persistent store wins on reads.
type TokenStore struct {
	persistent Storage
	session    Storage
}

// NewTokenStore creates a TokenStore over the given backing stores.
func NewTokenStore(persistent, session Storage) *TokenStore {
	return &TokenStore{persistent: persistent, session: session}
}

// Get returns the current token or an empty string when there is none.
func (s *TokenStore) Get() string {
	if token, ok := s.persistent.GetItem(TokenKey); ok && token != "" {
		return token
	}
	if token, ok := s.session.GetItem(TokenKey); ok {
		return token
	}
	return ""
}

// Set stores the token in the persistent store when remember is true, otherwise
// in the session store. The other store is left untouched.
func (s *TokenStore) Set(token string, remember bool) {
	if remember {
		s.persistent.SetItem(TokenKey, token)
		return
	}
	s.session.SetItem(TokenKey, token)
}

// Remembered reports whether the current token lives in the persistent store.
// With no token at all it reports true, the default for new tokens.
func (s *TokenStore) Remembered() bool {
	if token, ok := s.persistent.GetItem(TokenKey); ok && token != "" {
		return true
	}
	if token, ok := s.session.GetItem(TokenKey); ok && token != "" {
		return false
	}
	return true
}

// Clear removes the token from both stores and drops the cached profile.
func (s *TokenStore) Clear() {
	s.persistent.RemoveItem(TokenKey)
	s.session.RemoveItem(TokenKey)
	s.persistent.RemoveItem(ProfileKey)
}

// Profile returns the cached user profile, if any.
func (s *TokenStore) Profile() (*UserProfile, bool) {
	raw, ok := s.persistent.GetItem(ProfileKey)
	if !ok || raw == "" {
		return nil, false
	}
	var profile UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		log.Warn().Err(err).Msg("Discarding unreadable cached profile")
		return nil, false
	}
	return &profile, true
}

// SetProfile overwrites the cached profile.
func (s *TokenStore) SetProfile(profile UserProfile) {
	data, err := json.Marshal(profile)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode user profile")
		return
	}
	s.persistent.SetItem(ProfileKey, string(data))
}

// MemoryStorage is a volatile Storage that lives as long as the process.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (m *MemoryStorage) GetItem(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *MemoryStorage) SetItem(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
}

func (m *MemoryStorage) RemoveItem(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// RepoStorage adapts a db.KVRepository to the Storage interface.
type RepoStorage struct{ repo db.KVRepository }

// NewRepoStorage wraps repo as a persistent Storage.
func NewRepoStorage(repo db.KVRepository) *RepoStorage {
	return &RepoStorage{repo: repo}
}

func (s *RepoStorage) GetItem(key string) (string, bool) {
	v, ok, err := s.repo.Get(context.Background(), key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to read persistent storage")
		return "", false
	}
	return v, ok
}

func (s *RepoStorage) SetItem(key, value string) {
	if err := s.repo.Set(context.Background(), key, value); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to write persistent storage")
	}
}

func (s *RepoStorage) RemoveItem(key string) {
	if err := s.repo.Delete(context.Background(), key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to remove from persistent storage")
	}
}
