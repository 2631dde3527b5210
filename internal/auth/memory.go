package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bharatverse/bharatverse/internal/models"
)

// MemoryStore keeps accounts in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	byName  map[string]*models.User
	byEmail map[string]*models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byName:  make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, user models.User) error {
	nameKey := strings.ToLower(user.Username)
	emailKey := normalizeEmail(user.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[nameKey]; exists {
		return models.ErrUsernameTaken
	}
	if emailKey != "" {
		if _, exists := m.byEmail[emailKey]; exists {
			return models.ErrEmailTaken
		}
	}

	stored := user
	m.byName[nameKey] = &stored
	if emailKey != "" {
		m.byEmail[emailKey] = &stored
	}
	return nil
}

func (m *MemoryStore) FindUser(_ context.Context, identifier string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if user, ok := m.byName[strings.ToLower(strings.TrimSpace(identifier))]; ok {
		found := *user
		return &found, nil
	}
	if user, ok := m.byEmail[normalizeEmail(identifier)]; ok {
		found := *user
		return &found, nil
	}
	return nil, models.ErrNotFound
}

func (m *MemoryStore) TouchUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.byName {
		if user.ID == id {
			user.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return models.ErrNotFound
}
