package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flux-qa/flux-backend/logger"
)

func newTestManager(t *testing.T, duration time.Duration) *Manager {
	t.Helper()
	return NewManager(duration, logger.NewTestLogger())
}

func TestSession_ExpiredAt(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, s.ExpiredAt(now))
	assert.False(t, s.ExpiredAt(now.Add(time.Hour)))
	assert.True(t, s.ExpiredAt(now.Add(time.Hour+time.Second)))
}

func TestManager_CreateAndGet(t *testing.T) {
	m := newTestManager(t, 24*time.Hour)
	userID := uuid.New()

	created, err := m.Create(userID, "qa@flux.dev")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := m.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, "qa@flux.dev", got.Email)
	assert.True(t, got.ExpiresAt.After(got.CreatedAt))
}

func TestManager_GetUnknown(t *testing.T) {
	m := newTestManager(t, time.Hour)

	_, err := m.Get(uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_GetExpiredRemovesSession(t *testing.T) {
	m := newTestManager(t, time.Millisecond)

	created, err := m.Create(uuid.New(), "qa@flux.dev")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = m.Get(created.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	// The expired session is dropped on first read, not kept around.
	_, err = m.Get(created.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_Delete(t *testing.T) {
	m := newTestManager(t, time.Hour)

	created, err := m.Create(uuid.New(), "qa@flux.dev")
	require.NoError(t, err)

	m.Delete(created.ID)

	_, err = m.Get(created.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_SweepRemovesOnlyExpired(t *testing.T) {
	m := newTestManager(t, time.Hour)

	live, err := m.Create(uuid.New(), "live@flux.dev")
	require.NoError(t, err)

	stale, err := m.Create(uuid.New(), "stale@flux.dev")
	require.NoError(t, err)
	stale.ExpiresAt = time.Now().Add(-time.Minute)

	assert.Equal(t, 1, m.sweep(time.Now()))

	_, err = m.Get(live.ID)
	assert.NoError(t, err)

	_, err = m.Get(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_ConcurrentCreateAndGet(t *testing.T) {
	m := newTestManager(t, time.Hour)

	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.Create(uuid.New(), "qa@flux.dev")
			if err == nil {
				ids <- s.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	count := 0
	for id := range ids {
		_, err := m.Get(id)
		assert.NoError(t, err)
		count++
	}
	assert.Equal(t, 100, count)
}
