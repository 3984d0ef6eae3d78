package ws

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterSupersedesPreviousSession(t *testing.T) {
	reg := NewRegistry()
	first := newFakeChannel("u1")
	second := newFakeChannel("u1")

	assert.Nil(t, reg.Register("u1", first))
	prev := reg.Register("u1", second)
	require.NotNil(t, prev)
	assert.Same(t, first, prev)

	got, ok := reg.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, reg.Count())
}

func TestRegistryRegisterSameChannelTwice(t *testing.T) {
	reg := NewRegistry()
	ch := newFakeChannel("u1")

	reg.Register("u1", ch)
	assert.Nil(t, reg.Register("u1", ch))
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	ch := newFakeChannel("u1")
	reg.Register("u1", ch)

	assert.True(t, reg.Unregister("u1", ch))
	assert.False(t, reg.Unregister("u1", ch))
	assert.False(t, reg.Unregister("nobody", ch))

	_, ok := reg.Lookup("u1")
	assert.False(t, ok)
}

func TestRegistryUnregisterKeepsSuccessor(t *testing.T) {
	reg := NewRegistry()
	first := newFakeChannel("u1")
	second := newFakeChannel("u1")
	reg.Register("u1", first)
	reg.Register("u1", second)

	assert.False(t, reg.Unregister("u1", first))

	got, ok := reg.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistryConcurrentRegisterUnregister(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", i%5)
			ch := newFakeChannel(userID)
			reg.Register(userID, ch)
			reg.Lookup(userID)
			reg.Unregister(userID, ch)
		}(i)
	}
	wg.Wait()

	for _, ch := range reg.Snapshot() {
		got, ok := reg.Lookup(ch.UserID())
		require.True(t, ok)
		assert.Same(t, ch, got)
	}
	assert.LessOrEqual(t, reg.Count(), 5)
}
