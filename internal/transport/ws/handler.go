package ws

import (
	"errors"

	"hostbridge/internal/model"
	"hostbridge/internal/registry"
	"hostbridge/internal/rpc"
)

type methodFunc func(s *Server, origin registry.Handle, req rpc.Request, mode registry.FrameMode)

// handleMessage validates one inbound frame and dispatches it. Every error
// path answers synchronously on a network goroutine; only a valid execute
// crosses over to the tick thread, and it gets no response here.
func (s *Server) handleMessage(origin registry.Handle, data []byte, mode registry.FrameMode) {
	req, err := rpc.DecodeRequest(data)
	switch {
	case errors.Is(err, rpc.ErrParse):
		// Nothing to execute and no id to correlate with.
		s.reg.Send(origin, rpc.EncodeError(nil, rpc.CodeParseError, "Parse error"), mode)
		return
	case err != nil:
		s.reg.Send(origin, rpc.EncodeError(req.IDOrNull(), rpc.CodeInvalidRequest, "Invalid request"), mode)
		return
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		s.log.Debug("unknown method", "method", req.Method, "id", req.ID)
		s.reg.Send(origin, rpc.EncodeError(req.IDOrNull(), rpc.CodeMethodNotFound, "Method not found"), mode)
		return
	}
	handler(s, origin, req, mode)
}

func (s *Server) handlePing(origin registry.Handle, req rpc.Request, mode registry.FrameMode) {
	s.reg.Send(origin, rpc.EncodeResult(req.ID, "pong"), mode)
}

// handleExecute enqueues the command for the next host tick. The response
// is sent later by the executor, after the host has run it.
func (s *Server) handleExecute(origin registry.Handle, req rpc.Request, mode registry.FrameMode) {
	if len(req.Params) != 1 {
		s.reg.Send(origin, rpc.EncodeError(req.IDOrNull(), rpc.CodeInvalidParams,
			"execute expects a single parameter, the command to run"), mode)
		return
	}

	s.pending.Push(model.PendingCommand{
		ID:      req.ID,
		Command: req.Params[0],
		Origin:  origin,
		Mode:    mode,
	})
}
