// Package model holds the data types shared between the network layer,
// the executor and the history store.
package model

import (
	"time"

	"hostbridge/internal/registry"
)

// PendingCommand is a validated execute request waiting for a host tick.
// It is created by the session server, consumed exactly once by the
// executor and never mutated in between. Ownership moves producer ->
// queue -> consumer.
type PendingCommand struct {
	ID      int64
	Command string
	Origin  registry.Handle
	Mode    registry.FrameMode
}

// Execution statuses recorded in the history log.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Execution is one completed host command.
type Execution struct {
	RequestID  int64     `json:"request_id"`
	Command    string    `json:"command"`
	Status     string    `json:"status"`
	ResultSize int       `json:"result_size"`
	ExecutedAt time.Time `json:"executed_at"`
}
