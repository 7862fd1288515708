// Package executor drains the handoff queue from the host tick context.
// It is the sole consumer of the queue and the only component that calls
// the host.
package executor

import (
	"log/slog"
	"time"

	"hostbridge/internal/history"
	"hostbridge/internal/host"
	"hostbridge/internal/model"
	"hostbridge/internal/queue"
	"hostbridge/internal/registry"
	"hostbridge/internal/rpc"
)

// Executor processes at most one pending command per tick. That bounds
// how long the bridge can spend inside a host callback; under load the
// cost shows up as queueing delay instead.
type Executor struct {
	pending *queue.Queue[model.PendingCommand]
	host    host.Executor
	reg     *registry.Registry
	hist    *history.Store // nil when history is disabled
	log     *slog.Logger
}

func New(pending *queue.Queue[model.PendingCommand], h host.Executor, reg *registry.Registry, hist *history.Store, log *slog.Logger) *Executor {
	return &Executor{
		pending: pending,
		host:    h,
		reg:     reg,
		hist:    hist,
		log:     log,
	}
}

// Tick runs one scheduling cycle. It must be called from the host tick
// context only, and it never blocks: an empty queue is a no-op tick.
func (e *Executor) Tick() {
	cmd, ok := e.pending.TryPop()
	if !ok {
		return
	}

	result, err := e.host.Execute(cmd.Command)
	if err != nil {
		e.log.Warn("host execution failed", "id", cmd.ID, "err", err)
		e.reg.Send(cmd.Origin, rpc.EncodeError(&cmd.ID, rpc.CodeServerError, "Error when executing command"), cmd.Mode)
		e.record(cmd, model.StatusError, 0)
		return
	}

	e.reg.Send(cmd.Origin, rpc.EncodeResult(cmd.ID, result), cmd.Mode)
	e.record(cmd, model.StatusOK, len(result))
}

func (e *Executor) record(cmd model.PendingCommand, status string, resultSize int) {
	if e.hist == nil {
		return
	}
	e.hist.Record(model.Execution{
		RequestID:  cmd.ID,
		Command:    cmd.Command,
		Status:     status,
		ResultSize: resultSize,
		ExecutedAt: time.Now().UTC(),
	})
}
