package core

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrations_Register(t *testing.T) {
	r := NewRegistrations()

	require.NoError(t, r.Register("alice"))
	assert.ErrorIs(t, r.Register("alice"), ErrRegistrationConflict)
	assert.ErrorIs(t, r.Register(""), ErrRegistrationConflict)
	assert.ErrorIs(t, r.Register("   "), ErrRegistrationConflict)
	require.NoError(t, r.Register("bob"))

	assert.True(t, r.IsRegistered("alice"))
	assert.False(t, r.IsRegistered("carol"))
	assert.Equal(t, []string{"alice", "bob"}, r.Usernames())
}

func TestRegistrations_ConcurrentClaims(t *testing.T) {
	r := NewRegistrations()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Register("alice") == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load(), "exactly one claim succeeds")
}

func TestRegistrations_IndependentOfJoin(t *testing.T) {
	reg := NewRegistrations()
	require.NoError(t, reg.Register("alice"))

	r := NewRelay()
	for i := 0; i < 2; i++ {
		id := fmt.Sprintf("c%d", i)
		require.NoError(t, r.Connect(id, "alice"))
		_, err := r.Join(id, "general")
		require.NoError(t, err)
	}
	connect(t, r, "u1", "unregistered")
	_, err := r.Join("u1", "general")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "unregistered"}, r.Members("general"))
}
