package presence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
)

func TestRegisterAndResolve(t *testing.T) {
	d := NewDirectory()
	client := NewClient(&mocks.ConnRecorder{}, ConnInfo{UserID: 1})

	d.Register(1, client)

	resolved, ok := d.Resolve(1)
	require.True(t, ok)
	assert.Same(t, client, resolved)
	assert.True(t, d.IsOnline(1))
	assert.False(t, d.IsOnline(2))
}

func TestRegisterIgnoresAnonymousIdentity(t *testing.T) {
	d := NewDirectory()

	d.Register(0, NewClient(&mocks.ConnRecorder{}, ConnInfo{}))
	d.Register(-1, NewClient(&mocks.ConnRecorder{}, ConnInfo{}))

	assert.False(t, d.IsOnline(0))
	assert.False(t, d.IsOnline(-1))
}

func TestReconnectReplacesConnection(t *testing.T) {
	d := NewDirectory()
	first := NewClient(&mocks.ConnRecorder{}, ConnInfo{UserID: 1})
	second := NewClient(&mocks.ConnRecorder{}, ConnInfo{UserID: 1})

	d.Register(1, first)
	d.Register(1, second)

	resolved, ok := d.Resolve(1)
	require.True(t, ok)
	assert.Same(t, second, resolved)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	d := NewDirectory()
	d.Register(1, NewClient(&mocks.ConnRecorder{}, ConnInfo{UserID: 1}))

	d.Unregister(1)
	d.Unregister(1)

	assert.False(t, d.IsOnline(1))
}

// A late disconnect from a replaced connection must not evict the replacement.
func TestStaleDisconnectDoesNotEvictReplacement(t *testing.T) {
	d := NewDirectory()
	stale := NewClient(&mocks.ConnRecorder{}, ConnInfo{UserID: 1})
	current := NewClient(&mocks.ConnRecorder{}, ConnInfo{UserID: 1})

	d.Register(1, stale)
	d.Register(1, current)
	d.UnregisterClient(1, stale)

	resolved, ok := d.Resolve(1)
	require.True(t, ok)
	assert.Same(t, current, resolved)
}

func TestSendToOfflineUserIsDropped(t *testing.T) {
	d := NewDirectory()

	delivered := d.Send(context.Background(), 42, map[string]string{"event": "ping"})

	assert.False(t, delivered)
}

func TestSendDeliversToResolvedConnection(t *testing.T) {
	d := NewDirectory()
	rec := &mocks.ConnRecorder{}
	d.Register(1, NewClient(rec, ConnInfo{UserID: 1}))

	delivered := d.Send(context.Background(), 1, map[string]string{"event": "ping"})

	assert.True(t, delivered)
	require.Len(t, rec.Written(), 1)
}

func TestSendWriteFailureClosesAndEvicts(t *testing.T) {
	d := NewDirectory()
	rec := &mocks.ConnRecorder{WriteErr: errors.New("broken pipe")}
	d.Register(1, NewClient(rec, ConnInfo{UserID: 1}))

	delivered := d.Send(context.Background(), 1, map[string]string{"event": "ping"})

	assert.False(t, delivered)
	assert.True(t, rec.Closed)
	assert.False(t, d.IsOnline(1))
}
