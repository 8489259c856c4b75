package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/conductor/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LocksAreReleased(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	for i := range 1000 {
		require.NoError(t, mgr.WithLock(ctx, fmt.Sprintf("run-%d", i), func(context.Context) error { return nil }))
	}

	assert.Empty(t, mgr.locks, "no entry survives its last holder")
}

func TestManager_WithLockSerializesKey(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	var inside, peak atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.WithLock(ctx, "shared", func(context.Context) error {
				n := inside.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Empty(t, mgr.locks)
}
