package mailbox

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	mb := New()
	payload := []byte("hello world")
	require.NoError(t, mb.Send(42, payload))

	msg, ok := mb.TryReceive()
	require.True(t, ok)
	assert.Equal(t, uint64(42), msg.Tag)
	assert.Equal(t, payload, msg.Data)
}

// TestSendCopiesPayload verifies Send copies when size > 0 (spec §8
// idempotence: a round trip observes the sent bytes, independent of later
// mutation of the caller's buffer).
func TestSendCopiesPayload(t *testing.T) {
	mb := New()
	payload := []byte("original")
	require.NoError(t, mb.Send(1, payload))
	payload[0] = 'X'

	msg, ok := mb.TryReceive()
	require.True(t, ok)
	assert.Equal(t, "original", string(msg.Data))
}

// TestSendZeroSizeAdoptsWithoutCopy exercises spec §8's size==0 boundary
// path: a nil payload is accepted and delivered with its tag and an
// empty Data. It does not check slice identity.
func TestSendZeroSizeAdoptsWithoutCopy(t *testing.T) {
	mb := New()
	var empty []byte
	require.NoError(t, mb.Send(7, empty))

	msg, ok := mb.TryReceive()
	require.True(t, ok)
	assert.Equal(t, uint64(7), msg.Tag)
	assert.Empty(t, msg.Data)
}

func TestTryReceiveOnEmptyReturnsFalse(t *testing.T) {
	mb := New()
	_, ok := mb.TryReceive()
	assert.False(t, ok)
}

func TestEmptyAndLen(t *testing.T) {
	mb := New()
	assert.True(t, mb.Empty())
	assert.Zero(t, mb.Len())

	require.NoError(t, mb.Send(1, nil))
	assert.False(t, mb.Empty())
	assert.EqualValues(t, 1, mb.Len())

	_, _ = mb.TryReceive()
	assert.True(t, mb.Empty())
}

// TestMPSCOrderingPerSender verifies spec §8 property 3: for N producers
// each sending M messages of distinct tags to one receiver, the receiver
// eventually receives exactly N*M messages, and each individual producer's
// messages arrive in that producer's send order.
func TestMPSCOrderingPerSender(t *testing.T) {
	const producers = 8
	const perProducer = 500

	mb := New()
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		p := p
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				tag := uint64(p)<<32 | uint64(i)
				assert.NoError(t, mb.Send(tag, []byte(fmt.Sprintf("p%d-%d", p, i))))
			}
		}()
	}
	wg.Wait()

	lastSeenPerProducer := make([]int64, producers)
	for i := range lastSeenPerProducer {
		lastSeenPerProducer[i] = -1
	}

	total := 0
	for {
		msg, ok := mb.TryReceive()
		if !ok {
			break
		}
		total++
		producer := msg.Tag >> 32
		seq := int64(msg.Tag & 0xffffffff)
		assert.Greater(t, seq, lastSeenPerProducer[producer], "messages from a single sender must arrive in send order")
		lastSeenPerProducer[producer] = seq
	}
	assert.Equal(t, producers*perProducer, total)
}

// TestReceiveBlocksThenUnblocks exercises the blocking Receive path with a
// caller-supplied park function, standing in for package sched's parking
// hook.
func TestReceiveBlocksThenUnblocks(t *testing.T) {
	mb := New()
	parkCalls := 0
	var mu sync.Mutex

	sent := make(chan struct{})
	go func() {
		<-sent
		assert.NoError(t, mb.Send(9, []byte("go")))
	}()

	park := func(ctx context.Context) error {
		mu.Lock()
		parkCalls++
		first := parkCalls == 1
		mu.Unlock()
		if first {
			close(sent)
		}
		return ctx.Err()
	}

	msg, err := mb.Receive(context.Background(), park)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), msg.Tag)
}

func TestReceiveHonorsContextCancellation(t *testing.T) {
	mb := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	park := func(ctx context.Context) error { return ctx.Err() }
	_, err := mb.Receive(ctx, park)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOnNonEmptyFiresOnZeroToOneTransition(t *testing.T) {
	mb := New()
	fires := 0
	mb.OnNonEmpty(func() { fires++ })

	require.NoError(t, mb.Send(1, nil))
	require.NoError(t, mb.Send(2, nil))
	assert.Equal(t, 1, fires, "callback should only fire on the 0->1 transition")

	_, _ = mb.TryReceive()
	_, _ = mb.TryReceive()
	require.NoError(t, mb.Send(3, nil))
	assert.Equal(t, 2, fires, "callback fires again after the queue empties and refills")
}

// TestCloseDrainsRemainingMessages verifies spec §8 property 4: messages
// sent before a mailbox is destroyed are freed, not lost, at destruction.
func TestCloseDrainsRemainingMessages(t *testing.T) {
	mb := New()
	for i := 0; i < 10; i++ {
		require.NoError(t, mb.Send(uint64(i), nil))
	}
	mb.Close()

	_, ok := mb.TryReceive()
	assert.False(t, ok)
	assert.ErrorIs(t, mb.Send(99, nil), ErrClosed)

	// Close is idempotent.
	mb.Close()
}
