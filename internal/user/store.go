package user

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by a Store when no user matches.
var ErrNotFound = errors.New("user not found")

// Store persists users.
type Store interface {
	// FindByID returns the user with id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByEmail returns the user with the normalized email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Save inserts or replaces u. It assigns an ID to new users and
	// stamps UpdatedAt.
	Save(ctx context.Context, u *User) error
}

// prepare fills the fields Save is responsible for.
func prepare(u *User, now time.Time) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now.UTC()
	}
	u.UpdatedAt = now.UTC()
}

// MemoryStore is an in-process Store. It keeps copies of saved users so a
// caller holding a *User never mutates persisted state without Save.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// FindByID implements Store.
func (s *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// FindByEmail implements Store.
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := s.byID[id]
	return &u, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(u, s.now())

	if id, ok := s.byEmail[u.Email]; ok && id != u.ID {
		return errors.New("email already registered to another user")
	}
	if prev, ok := s.byID[u.ID]; ok && prev.Email != u.Email {
		delete(s.byEmail, prev.Email)
	}

	s.byID[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

// Len returns the number of stored users.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
