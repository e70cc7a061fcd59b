package process

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouuuuaad/arnm-runtime/mailbox"
)

// TestPIDUniqueness verifies the uniqueness half of spec §8 property 1:
// PIDs assigned across a run are distinct and nonzero, including under
// concurrent construction from many goroutines at once. Their ordering
// is not checked here.
func TestPIDUniqueness(t *testing.T) {
	const n = 2000
	pids := make([]uint64, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			p, err := New(0, 0)
			assert.NoError(t, err)
			if p != nil {
				pids[i] = p.PID
			}
		}()
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for _, pid := range pids {
		assert.False(t, seen[pid], "duplicate pid %d", pid)
		seen[pid] = true
		assert.Greater(t, pid, uint64(0), "pid must start above 0")
	}
}

func TestNewDefaultsStackSize(t *testing.T) {
	p, err := New(0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultStackSize, p.StackSize)
	assert.Nil(t, p.ActorState)
	assert.Equal(t, Ready, p.State())
}

func TestNewAllocatesActorState(t *testing.T) {
	p, err := New(0, 256)
	require.NoError(t, err)
	require.NotNil(t, p.ActorState)
	assert.GreaterOrEqual(t, p.ActorState.Size(), 256)
	assert.NoError(t, p.ActorState.Free())
}

func TestStateTransitions(t *testing.T) {
	p, err := New(0, 0)
	require.NoError(t, err)

	assert.Equal(t, Ready, p.State())
	p.SetState(Running)
	assert.Equal(t, Running, p.State())

	assert.True(t, p.CompareAndSwapState(Running, Waiting))
	assert.Equal(t, Waiting, p.State())
	assert.False(t, p.CompareAndSwapState(Running, Dead), "CAS against stale expected state must fail")
	assert.Equal(t, Waiting, p.State())
}

func TestStateString(t *testing.T) {
	cases := map[State]string{Ready: "ready", Running: "running", Waiting: "waiting", Dead: "dead"}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
	assert.Equal(t, "unknown", State(99).String())
}

func TestHandlePIDAndUnwrap(t *testing.T) {
	p, err := New(0, 0)
	require.NoError(t, err)

	h := NewHandle(p)
	assert.Equal(t, p.PID, h.PID())
	assert.Same(t, p, h.Unwrap())

	var nilHandle *Handle
	assert.Equal(t, uint64(0), nilHandle.PID())
	assert.Nil(t, nilHandle.Unwrap())
}

func TestDestroyClosesMailboxAndFreesState(t *testing.T) {
	p, err := New(0, 64)
	require.NoError(t, err)
	require.NoError(t, p.Mailbox.Send(1, []byte("hi")))

	p.Destroy()
	_, ok := p.Mailbox.TryReceive()
	assert.False(t, ok, "Destroy must drain the mailbox")
	assert.ErrorIs(t, p.Mailbox.Send(2, nil), mailbox.ErrClosed)
}
