package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ayush/exam-bank/backend/internal/models"
)

// MemoryStore is a process-local user store for development and tests.
// It enforces the same username uniqueness as the users table.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.User
	byName map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[int64]models.User),
		byName: make(map[string]int64),
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[u.Username]; ok {
		return fmt.Errorf("create user %q: %w", u.Username, ErrDuplicate)
	}
	s.nextID++
	now := time.Now()
	u.ID = s.nextID
	u.CreatedAt = now
	u.UpdatedAt = now
	s.byID[u.ID] = *u
	s.byName[u.Username] = u.ID
	return nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byName[username]
	if !ok {
		return nil, fmt.Errorf("get user by username: %w", ErrNotFound)
	}
	u := s.byID[id]
	return &u, nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("get user by id: %w", ErrNotFound)
	}
	return &u, nil
}

func (s *MemoryStore) RecordLogin(_ context.Context, id int64, at time.Time, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("record login for user %d: %w", id, ErrNotFound)
	}
	u.LastLogin = &at
	u.LastLoginIP = &ip
	u.UpdatedAt = at
	s.byID[id] = u
	return nil
}
