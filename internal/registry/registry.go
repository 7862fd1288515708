// Package registry tracks live WebSocket connections by opaque handle so
// a response produced on the tick thread can be routed back to the
// connection that issued the request.
package registry

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// FrameMode selects the WebSocket frame type for an outbound payload.
// Responses echo the frame type of the request they answer.
type FrameMode int

const (
	Text   = FrameMode(websocket.TextMessage)
	Binary = FrameMode(websocket.BinaryMessage)
)

// Handle identifies a registered connection. It stays valid only for the
// connection's lifetime; sends against a stale handle are dropped.
type Handle string

// Conn is the outbound half of a WebSocket connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// entry pairs a connection with its write lock. gorilla/websocket permits
// at most one concurrent writer per connection.
type entry struct {
	mu   sync.Mutex
	conn Conn
}

func (e *entry) write(payload []byte, mode FrameMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.WriteMessage(int(mode), payload)
}

// Registry maps handles to live connections.
type Registry struct {
	mu    sync.RWMutex
	conns map[Handle]*entry
	log   *slog.Logger
}

func New(log *slog.Logger) *Registry {
	return &Registry{
		conns: make(map[Handle]*entry),
		log:   log,
	}
}

// Register adds a connection and returns its handle.
func (r *Registry) Register(conn Conn) Handle {
	h := Handle(uuid.NewString())
	r.mu.Lock()
	r.conns[h] = &entry{conn: conn}
	r.mu.Unlock()
	return h
}

// Unregister removes a connection. Pending sends against the handle
// become no-ops.
func (r *Registry) Unregister(h Handle) {
	r.mu.Lock()
	delete(r.conns, h)
	r.mu.Unlock()
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Send writes a payload to the connection behind the handle. A vanished
// handle means the client disconnected before its response was ready;
// that is a normal condition, so it is logged and swallowed rather than
// surfaced to the caller.
func (r *Registry) Send(h Handle, payload []byte, mode FrameMode) {
	r.mu.RLock()
	e, ok := r.conns[h]
	r.mu.RUnlock()

	if !ok {
		r.log.Debug("dropping send to closed connection", "handle", string(h))
		return
	}
	if err := e.write(payload, mode); err != nil {
		r.log.Warn("websocket write failed", "handle", string(h), "err", err)
	}
}
