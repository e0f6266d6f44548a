package syncutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardedMutex_SerialisesSameKey(t *testing.T) {
	var m ShardedMutex
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("user_1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestContextShardedMutex_SerialisesSameKey(t *testing.T) {
	m := NewContextShardedMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.LockContext(context.Background(), "att_1")
			if err != nil {
				t.Errorf("lock failed: %v", err)
				return
			}
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestContextShardedMutex_DeadlineWhileWaiting(t *testing.T) {
	m := NewContextShardedMutex()

	unlock, err := m.LockContext(context.Background(), "att_busy")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = m.LockContext(ctx, "att_busy")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestContextShardedMutex_ZeroValueUsable(t *testing.T) {
	var m ContextShardedMutex
	unlock, err := m.LockContext(context.Background(), "k")
	require.NoError(t, err)
	unlock()

	unlock, err = m.LockContext(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}

func TestShardIndex_InRange(t *testing.T) {
	for _, key := range []string{"", "a", "user_123", "att_ffffffffffff"} {
		assert.Less(t, shardIndex(key), uint32(shardCount))
	}
}
