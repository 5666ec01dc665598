package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	events   []string
	payloads []interface{}
}

func (f *fakeConn) Emit(event string, payload interface{}) error {
	f.events = append(f.events, event)
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Lookup("worker-1")
	assert.False(t, ok)

	r.Register("worker-1", &fakeConn{})

	e, ok := r.Lookup("worker-1")
	require.True(t, ok)
	assert.Equal(t, "worker-1", e.WorkerID)
	assert.Equal(t, AppStateActive, e.AppState)
	assert.False(t, e.LastSeenAt.IsZero())

	r.Unregister("worker-1")
	_, ok = r.Lookup("worker-1")
	assert.False(t, ok)

	// Unregistering twice is harmless.
	r.Unregister("worker-1")
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	r.Register("worker-1", first)
	r.UpdateAppState("worker-1", AppStateBackground)
	r.Register("worker-1", second)

	// The replacement starts with a fresh state.
	e, ok := r.Lookup("worker-1")
	require.True(t, ok)
	assert.Equal(t, AppStateActive, e.AppState)

	assert.True(t, r.RequestLocation("worker-1", "journey-1"))
	assert.Empty(t, first.events)
	assert.Len(t, second.events, 1)
}

func TestRegistryUpdateAppState(t *testing.T) {
	r := NewRegistry()
	r.Register("worker-1", &fakeConn{})

	r.UpdateAppState("worker-1", AppStateBackground)
	e, ok := r.Lookup("worker-1")
	require.True(t, ok)
	assert.Equal(t, AppStateBackground, e.AppState)

	// Updating a worker that is not connected does not create an entry.
	r.UpdateAppState("worker-2", AppStateActive)
	_, ok = r.Lookup("worker-2")
	assert.False(t, ok)
}

func TestRegistryListConnected(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.ListConnected())

	r.Register("worker-1", &fakeConn{})
	r.Register("worker-2", &fakeConn{})

	entries := r.ListConnected()
	require.Len(t, entries, 2)
	ids := []string{entries[0].WorkerID, entries[1].WorkerID}
	assert.ElementsMatch(t, []string{"worker-1", "worker-2"}, ids)
}

func TestRegistryRequestLocation(t *testing.T) {
	r := NewRegistry()

	// Not connected: no send, no error.
	assert.False(t, r.RequestLocation("worker-1", "journey-1"))

	conn := &fakeConn{}
	r.Register("worker-1", conn)

	require.True(t, r.RequestLocation("worker-1", "journey-1"))
	require.Len(t, conn.events, 1)
	assert.Equal(t, "message", conn.events[0])

	payload, ok := conn.payloads[0].(messagePayload)
	require.True(t, ok)
	assert.Equal(t, eventRequestLocation, payload.Type)
	assert.Equal(t, map[string]string{"journeyId": "journey-1"}, payload.Data)
}
