package live

import (
	"sync"
	"time"
)

// AppState priority values reported by worker devices. The value is an
// opaque string from the client; these constants only name the ones the
// admin view knows how to rank.
const (
	AppStateActive     = "active"
	AppStateBackground = "background"
	AppStateUnknown    = "unknown"
)

// Entry is a snapshot of one connected worker device.
type Entry struct {
	WorkerID   string    `json:"worker_id"`
	AppState   string    `json:"app_state"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Conn is the server's handle on a live device connection. Pushes are
// fire-and-forget; errors are the transport's problem, not the caller's.
type Conn interface {
	Emit(event string, payload interface{}) error
}

// ConnectionDirectory is the live-registry surface consumed by the
// anomaly sweep and the admin status query. The in-process Registry
// backs single-instance deployments; the Hub layers Redis fan-out on
// top for multi-instance ones.
type ConnectionDirectory interface {
	Register(workerID string, conn Conn)
	Unregister(workerID string)
	UpdateAppState(workerID, state string)
	ListConnected() []Entry
	Lookup(workerID string) (Entry, bool)
	// RequestLocation pushes a "send your location" message to the
	// worker's device. Returns false, without error, when the worker has
	// no live connection.
	RequestLocation(workerID, journeyID string) bool
}

type connEntry struct {
	conn       Conn
	appState   string
	lastSeenAt time.Time
}

// Registry is the in-process ConnectionDirectory: one mutable table per
// process, serialized by a mutex, lost on restart.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*connEntry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*connEntry)}
}

// Register adds or replaces the worker's connection. Last registration
// wins on reconnect races.
func (r *Registry) Register(workerID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[workerID] = &connEntry{
		conn:       conn,
		appState:   AppStateActive,
		lastSeenAt: time.Now(),
	}
}

// Unregister removes the worker's connection if present.
func (r *Registry) Unregister(workerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, workerID)
}

// UpdateAppState overwrites the stored app state. The value is treated
// as an opaque client string and not validated against an enum.
func (r *Registry) UpdateAppState(workerID, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[workerID]; ok {
		e.appState = state
		e.lastSeenAt = time.Now()
	}
}

// ListConnected returns a snapshot of all entries.
func (r *Registry) ListConnected() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for id, e := range r.entries {
		out = append(out, Entry{WorkerID: id, AppState: e.appState, LastSeenAt: e.lastSeenAt})
	}
	return out
}

// Lookup returns the worker's entry snapshot if connected.
func (r *Registry) Lookup(workerID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[workerID]
	if !ok {
		return Entry{}, false
	}
	return Entry{WorkerID: workerID, AppState: e.appState, LastSeenAt: e.lastSeenAt}, true
}

// RequestLocation pushes a location request over the worker's
// connection. No acknowledgement or timeout is tracked.
func (r *Registry) RequestLocation(workerID, journeyID string) bool {
	r.mu.RLock()
	e, ok := r.entries[workerID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	_ = e.conn.Emit("message", messagePayload{
		Type: eventRequestLocation,
		Data: map[string]string{"journeyId": journeyID},
	})
	return true
}

var _ ConnectionDirectory = (*Registry)(nil)
