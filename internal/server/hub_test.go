package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndCounts(t *testing.T) {
	e := newTestEnv(t)

	a := e.newSession("192.168.1.10:1111")
	b := e.newSession("192.168.1.11:2222")

	assert.Equal(t, 2, e.hub.ClientCount())
	assert.Equal(t, 0, e.hub.AuthenticatedCount())
	assert.NotEqual(t, a.ID(), b.ID())

	e.hub.MarkAuthenticated(a)
	assert.Equal(t, 1, e.hub.AuthenticatedCount())
}

func TestBroadcastReachesOnlyAuthenticated(t *testing.T) {
	e := newTestEnv(t)

	a := e.newSession("192.168.1.10:1111")
	b := e.newSession("192.168.1.11:2222")
	c := e.newSession("192.168.1.12:3333")

	e.hub.MarkAuthenticated(a)
	e.hub.MarkAuthenticated(b)

	e.hub.Broadcast([]byte(`{"type":"chat_message","message":"hi"}`))

	assert.Equal(t, "chat_message", receivePayload(t, a)["type"])
	assert.Equal(t, "chat_message", receivePayload(t, b)["type"])
	requireNoPayload(t, c)
}

func TestBroadcastOrderPreservedPerRecipient(t *testing.T) {
	e := newTestEnv(t)

	a := e.newSession("192.168.1.10:1111")
	e.hub.MarkAuthenticated(a)

	for i := 0; i < 10; i++ {
		e.hub.Broadcast([]byte(fmt.Sprintf(`{"type":"chat_message","message":"%d"}`, i)))
	}
	for i := 0; i < 10; i++ {
		msg := receivePayload(t, a)
		assert.Equal(t, fmt.Sprintf("%d", i), msg["message"])
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	e := newTestEnv(t)

	a := e.newSession("192.168.1.10:1111")
	e.hub.MarkAuthenticated(a)

	e.hub.Unregister(a)
	assert.Equal(t, 0, e.hub.ClientCount())

	// Second removal is a no-op, not a double close.
	require.NotPanics(t, func() { e.hub.Unregister(a) })
}

func TestBroadcastAfterDisconnectDoesNotDeliver(t *testing.T) {
	e := newTestEnv(t)

	a := e.newSession("192.168.1.10:1111")
	b := e.newSession("192.168.1.11:2222")
	e.hub.MarkAuthenticated(a)
	e.hub.MarkAuthenticated(b)

	e.hub.Unregister(b)

	require.NotPanics(t, func() {
		e.hub.Broadcast([]byte(`{"type":"chat_message","message":"still here"}`))
	})

	assert.Equal(t, "still here", receivePayload(t, a)["message"])
}

func TestBroadcastEvictsFullBufferClient(t *testing.T) {
	e := newTestEnv(t)

	a := e.newSession("192.168.1.10:1111")
	e.hub.MarkAuthenticated(a)

	// Fill the send buffer so the next broadcast cannot be enqueued.
	for i := 0; i < cap(a.send); i++ {
		require.True(t, e.hub.sendTo(a, []byte(`{"type":"chat_message"}`)))
	}

	e.hub.Broadcast([]byte(`{"type":"chat_message","message":"overflow"}`))

	assert.Equal(t, 0, e.hub.ClientCount())
}

func TestConcurrentRegistryMutationAndBroadcast(t *testing.T) {
	e := newTestEnv(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := e.newSession(fmt.Sprintf("192.168.1.%d:1000", i))
			e.hub.MarkAuthenticated(c)
			e.hub.Broadcast([]byte(`{"type":"chat_message","message":"x"}`))
			e.hub.Unregister(c)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, e.hub.ClientCount())
}
