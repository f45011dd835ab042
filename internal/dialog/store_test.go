package dialog

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/notekeeper/pkg/models"
)

// StoreSuite runs the Store contract against one implementation.
type StoreSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
	ctx      context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() Store { return NewMemoryStore() }})
}

func TestRedisStoreSuite(t *testing.T) {
	addr := os.Getenv("NOTEKEEPER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("NOTEKEEPER_TEST_REDIS_ADDR not set")
	}
	suite.Run(t, &StoreSuite{newStore: func() Store {
		rs := NewRedisStoreWithPool(NewRedisStore(addr).pool, "notekeeper-test:"+time.Now().Format("150405.000")+":")
		t.Cleanup(func() { _ = rs.Close() })
		return rs
	}})
}

func (s *StoreSuite) TestUnseenOwnerIsIdle() {
	for _, owner := range []models.OwnerID{1, 2, -5, 1 << 40} {
		st, err := s.store.Get(s.ctx, owner)
		s.Require().NoError(err)
		s.Equal(IdleState(), st)
		s.Equal(ActionNone, st.Action())
	}
}

func (s *StoreSuite) TestSetThenGet() {
	states := []State{
		AwaitNote(),
		AwaitReminder(),
		EditNote(Target{ID: "n1", Body: "old note", Tag: "work"}),
		EditReminder(Target{ID: "r1", Body: "buy milk"}),
		IdleState(),
	}
	for _, want := range states {
		s.Require().NoError(s.store.Set(s.ctx, 10, want))
		got, err := s.store.Get(s.ctx, 10)
		s.Require().NoError(err)
		s.Equal(want, got, want.Kind.String())
	}
}

func (s *StoreSuite) TestNoCrossOwnerLeakage() {
	s.Require().NoError(s.store.Set(s.ctx, 1, AwaitNote()))
	s.Require().NoError(s.store.Set(s.ctx, 2, EditReminder(Target{ID: "r", Body: "b"})))

	got1, err := s.store.Get(s.ctx, 1)
	s.Require().NoError(err)
	got2, err := s.store.Get(s.ctx, 2)
	s.Require().NoError(err)
	got3, err := s.store.Get(s.ctx, 3)
	s.Require().NoError(err)

	s.Equal(ActionAddNote, got1.Action())
	s.Equal(ActionEditReminder, got2.Action())
	s.Equal("b", got2.EditTarget())
	s.Equal(ActionNone, got3.Action())
}

func (s *StoreSuite) TestOverwriteDoesNotStack() {
	s.Require().NoError(s.store.Set(s.ctx, 1, EditNote(Target{ID: "n", Body: "x"})))
	s.Require().NoError(s.store.Set(s.ctx, 1, AwaitReminder()))

	got, err := s.store.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(AwaitReminder(), got)
	s.Equal("", got.EditTarget())
}

func (s *StoreSuite) TestClear() {
	s.Require().NoError(s.store.Set(s.ctx, 1, AwaitNote()))
	s.Require().NoError(s.store.Clear(s.ctx, 1))
	// Clearing twice is harmless.
	s.Require().NoError(s.store.Clear(s.ctx, 1))

	got, err := s.store.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.True(got.IsIdle())
}

func TestStateAccessors(t *testing.T) {
	tests := []struct {
		state   State
		action  Action
		target  string
		editing bool
	}{
		{IdleState(), ActionNone, "", false},
		{AwaitNote(), ActionAddNote, "", false},
		{AwaitReminder(), ActionAddReminder, "", false},
		{EditNote(Target{Body: "n"}), ActionEditNote, "n", true},
		{EditReminder(Target{Body: "r"}), ActionEditReminder, "r", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.action, tt.state.Action())
			assert.Equal(t, tt.target, tt.state.EditTarget())
			assert.Equal(t, tt.editing, tt.state.IsEditing())

			k, err := ParseAction(string(tt.action))
			require.NoError(t, err)
			assert.Equal(t, tt.state.Kind, k)
		})
	}

	_, err := ParseAction("bogus")
	assert.Error(t, err)
}

func TestMemoryStorePendingCount(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, 1, AwaitNote()))
	require.NoError(t, m.Set(ctx, 2, AwaitReminder()))
	require.NoError(t, m.Set(ctx, 2, IdleState()))
	assert.Equal(t, 1, m.PendingCount())
}

func TestLocksSerializeSameOwner(t *testing.T) {
	l := NewLocks()

	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := l.Lock(7)
			defer release()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Equal(t, 0, l.Len())
}

func TestLocksIndependentOwners(t *testing.T) {
	l := NewLocks()
	release1 := l.Lock(1)
	defer release1()

	done := make(chan struct{})
	go func() {
		release2 := l.Lock(2)
		release2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("owner 2 blocked by owner 1")
	}
}

func TestLocksReleaseIdempotent(t *testing.T) {
	l := NewLocks()
	release := l.Lock(1)
	release()
	release()
	assert.Equal(t, 0, l.Len())

	// Still usable afterwards.
	l.Lock(1)()
}
