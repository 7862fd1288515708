// Package ws implements the RPC session server: it owns the WebSocket
// accept path and per-message validation and dispatch. It runs entirely
// on network goroutines, decoupled from the host tick thread; the only
// thing that crosses over is a PendingCommand pushed onto the handoff
// queue.
package ws

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"hostbridge/internal/model"
	"hostbridge/internal/queue"
	"hostbridge/internal/registry"
)

// Server accepts WebSocket connections and feeds valid execute requests
// to the handoff queue. Built-in methods and all error paths are answered
// synchronously and never touch the queue.
type Server struct {
	reg     *registry.Registry
	pending *queue.Queue[model.PendingCommand]
	log     *slog.Logger
	up      websocket.Upgrader
	methods map[string]methodFunc
}

func NewServer(reg *registry.Registry, pending *queue.Queue[model.PendingCommand], log *slog.Logger) *Server {
	s := &Server{
		reg:     reg,
		pending: pending,
		log:     log,
		up: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The bridge serves local scripting clients.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	// Static dispatch table: the two built-ins plus the generic execute
	// path. Unknown methods fall through to MethodNotFound.
	s.methods = map[string]methodFunc{
		"ping":    (*Server).handlePing,
		"execute": (*Server).handleExecute,
	}
	return s
}

// Routes registers the WebSocket endpoint on the router.
func (s *Server) Routes(r *gin.Engine) {
	r.GET("/ws", s.handleWS)
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", c.Request.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	h := s.reg.Register(conn)
	defer s.reg.Unregister(h)

	s.log.Info("client connected", "remote", c.Request.RemoteAddr, "handle", string(h))
	s.readLoop(h, conn)
	s.log.Info("client disconnected", "handle", string(h))
}

func (s *Server) readLoop(h registry.Handle, conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("read error", "handle", string(h), "err", err)
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		s.handleMessage(h, data, registry.FrameMode(msgType))
	}
}
