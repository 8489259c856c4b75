package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/conductor/pkg/adapters/memory"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
	"github.com/aretw0/conductor/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func archive(ctx context.Context, store ports.TranscriptStore, runID, answer string) error {
	s := domain.NewState(runID, "q", []domain.WorkerID{domain.WorkerSynthesizer})
	s.FinalAnswer, s.Finished = answer, true
	now := time.Now()
	return store.Save(ctx, domain.NewTranscript(s, nil, now, now))
}

func TestManager_ReplayRunsOnce(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	ctx := context.Background()

	var calls atomic.Int32
	run := func(ctx context.Context) error {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond) // Simulate a slow run
		return archive(ctx, store, "idem-1", "42")
	}

	var (
		wg       sync.WaitGroup
		replays  atomic.Int32
		requests = 8
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr, replayed, err := manager.Replay(ctx, "idem-1", run)
			assert.NoError(t, err)
			if assert.NotNil(t, tr) {
				assert.Equal(t, "42", tr.Answer)
			}
			if replayed {
				replays.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "only the first submission runs")
	assert.Equal(t, int32(requests-1), replays.Load())
}

func TestManager_ReplayPropagatesRunError(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	boom := errors.New("planner down")

	_, _, err := manager.Replay(context.Background(), "idem-2", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestManager_ReplayRequiresArchive(t *testing.T) {
	manager := session.NewManager(memory.NewStore())

	_, _, err := manager.Replay(context.Background(), "idem-3", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked []string
	ttl      time.Duration
	err      error
}

func (l *recordingLocker) Lock(_ context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.locked = append(l.locked, key)
	l.ttl = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocked = append(l.unlocked, key)
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Minute))

	err := manager.WithLock(context.Background(), "k", func(context.Context) error {
		assert.Equal(t, []string{"k"}, locker.locked)
		assert.Empty(t, locker.unlocked, "held while fn runs")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, locker.unlocked)
	assert.Equal(t, time.Minute, locker.ttl)
}

func TestManager_DistributedLockFailure(t *testing.T) {
	locker := &recordingLocker{err: errors.New("redis unavailable")}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	called := false
	err := manager.WithLock(context.Background(), "k", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "redis unavailable")
	assert.False(t, called)
}
