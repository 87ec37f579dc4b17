package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/exam-bank/backend/internal/models"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	u := &models.User{Username: "alice", PasswordHash: "h", RealName: "Alice A", Role: models.RoleStudent}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.Equal(t, int64(1), u.ID)

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice A", byID.RealName)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DuplicateUsername(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "alice"}))
	err := s.CreateUser(ctx, &models.User{Username: "alice"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStore_ConcurrentCreateOnlyOneWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const n = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.CreateUser(ctx, &models.User{Username: "race"}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryStore_RecordLogin(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	u := &models.User{Username: "bob"}
	require.NoError(t, s.CreateUser(ctx, u))

	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordLogin(ctx, u.ID, at, "127.0.0.1"))

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.Equal(t, at, *got.LastLogin)
	assert.Equal(t, "127.0.0.1", *got.LastLoginIP)

	assert.Equal(t, at, got.UpdatedAt)

	assert.ErrorIs(t, s.RecordLogin(ctx, u.ID+1, at, ""), ErrNotFound)
	_, err = s.GetUserByID(ctx, u.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}
