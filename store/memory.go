package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a mutex-guarded in-process Store.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(m.byID[id]), nil
}

func (m *Memory) FindByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *Memory) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := NormalizeEmail(u.Email)
	if _, exists := m.byEmail[email]; exists {
		return ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = email

	m.byID[u.ID] = cloneUser(u)
	m.byEmail[email] = u.ID
	return nil
}

func (m *Memory) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byID[u.ID]
	if !ok {
		return ErrNotFound
	}
	email := NormalizeEmail(u.Email)
	if email != current.Email {
		if _, taken := m.byEmail[email]; taken {
			return ErrDuplicateEmail
		}
		delete(m.byEmail, current.Email)
		m.byEmail[email] = u.ID
	}
	u.Email = email
	m.byID[u.ID] = cloneUser(u)
	return nil
}

func (m *Memory) RevokeSession(_ context.Context, sessionID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, exp := range m.revoked {
		if !now.Before(exp) {
			delete(m.revoked, id)
		}
	}
	if now.Before(until) {
		m.revoked[sessionID] = until
	}
	return nil
}

func (m *Memory) SessionRevoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exp, ok := m.revoked[sessionID]
	return ok && m.now().Before(exp), nil
}

func (m *Memory) Close() error { return nil }
