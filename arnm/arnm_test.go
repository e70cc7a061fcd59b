package arnm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetState lets each test start from a clean package-level scheduler
// singleton; Shutdown is idempotent and safe to call speculatively.
func resetState(t *testing.T) {
	t.Helper()
	Shutdown()
}

func TestInitRunSpawnShutdown(t *testing.T) {
	resetState(t)
	defer resetState(t)

	require.NoError(t, Init(Config{NumWorkers: 2}))

	var ran atomic.Bool
	_, err := Spawn(func(ctx *Ctx, arg any) {
		ran.Store(true)
	}, nil, 0)
	require.NoError(t, err)

	runDone := make(chan error, 1)
	go func() { runDone <- Run(context.Background()) }()

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	assert.True(t, ran.Load())
	Shutdown()
}

func TestInitTwiceFails(t *testing.T) {
	resetState(t)
	defer resetState(t)

	require.NoError(t, Init(Config{NumWorkers: 1}))
	assert.Error(t, Init(Config{NumWorkers: 1}))
}

func TestSpawnBeforeInitFails(t *testing.T) {
	resetState(t)
	_, err := Spawn(func(ctx *Ctx, arg any) {}, nil, 0)
	assert.Error(t, err)
}

func TestSendBetweenSpawnedProcesses(t *testing.T) {
	resetState(t)
	defer resetState(t)

	require.NoError(t, Init(Config{NumWorkers: 2}))

	var got uint64
	receiverDone := make(chan struct{})
	receiver, err := Spawn(func(ctx *Ctx, arg any) {
		defer close(receiverDone)
		msg, err := ctx.Receive(context.Background())
		assert.NoError(t, err)
		got = msg.Tag
	}, nil, 0)
	require.NoError(t, err)

	_, err = Spawn(func(ctx *Ctx, arg any) {
		assert.NoError(t, ctx.Send(receiver, 1234, nil))
	}, nil, 0)
	require.NoError(t, err)

	go func() { _ = Run(context.Background()) }()

	select {
	case <-receiverDone:
	case <-time.After(5 * time.Second):
		t.Fatal("receiver never ran")
	}
	assert.EqualValues(t, 1234, got)
}
