package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	ports.TreeStore
}

func (s *SlowStore) Load(ctx context.Context, id string) (*domain.Tree, error) {
	time.Sleep(2 * time.Millisecond)
	return s.TreeStore.Load(ctx, id)
}

func TestManager_UpdateIsSerialized(t *testing.T) {
	manager := session.NewManager(&SlowStore{memory.NewStore()})
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	writers := 20
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := manager.Update(ctx, id, func(tree *domain.Tree) error {
				seq := tree.NextSeq()
				tree.Add(domain.Node{ID: domain.NodeID(fmt.Sprintf("n%d", i)), Question: "q", Seq: seq})
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Lost updates would show up as missing nodes.
	tree, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, writers, tree.Len())
}

func TestManager_LoadMissingIsEmpty(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	tree, err := manager.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.True(t, tree.IsEmpty())
}

func TestManager_UpdateFailureSavesNothing(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := manager.Update(ctx, "c", func(tree *domain.Tree) error {
		tree.Add(domain.Node{ID: "x", Question: "q"})
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Load(ctx, "c")
	assert.ErrorIs(t, err, domain.ErrTreeNotFound)
}

type recordingLocker struct {
	mu    sync.Mutex
	keys  []string
	ttl   time.Duration
	fail  error
	freed int
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return nil, l.fail
	}
	l.keys = append(l.keys, key)
	l.ttl = ttl
	return func(context.Context) error {
		l.mu.Lock()
		l.freed++
		l.mu.Unlock()
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(memory.NewStore(),
		session.WithLocker(locker),
		session.WithLockTTL(5*time.Second),
	)

	require.NoError(t, manager.Save(context.Background(), "conv", domain.NewTree()))
	assert.Equal(t, []string{"conv"}, locker.keys)
	assert.Equal(t, 5*time.Second, locker.ttl)
	assert.Equal(t, 1, locker.freed)
}

func TestManager_DistributedLockFailure(t *testing.T) {
	locker := &recordingLocker{fail: errors.New("redis down")}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	called := false
	err := manager.WithLock(context.Background(), "conv", func(context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
