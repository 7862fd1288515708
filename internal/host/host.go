// Package host defines the interface to the host application. The host is
// an opaque synchronous command executor that may only be called from its
// own tick context; nothing in this package schedules anything.
package host

import (
	"errors"
	"sync"
)

// ErrExecution is the single failure signal surfaced by a host. The host
// does not distinguish "command not found" from "command failed".
var ErrExecution = errors.New("command execution failed")

// Executor runs one command against the host and returns its textual
// result. Implementations are only ever invoked from the tick callback.
type Executor interface {
	Execute(command string) (string, error)
}

// Func adapts a plain function to Executor.
type Func func(command string) (string, error)

func (f Func) Execute(command string) (string, error) {
	return f(command)
}

// Script is a scriptable Executor for the standalone runner and tests.
// Commands with a configured reply return it, commands marked as failing
// return ErrExecution, everything else echoes the command back.
type Script struct {
	mu      sync.Mutex
	replies map[string]string
	failing map[string]struct{}
}

func NewScript() *Script {
	return &Script{
		replies: make(map[string]string),
		failing: make(map[string]struct{}),
	}
}

// Reply configures a fixed result for a command.
func (s *Script) Reply(command, result string) {
	s.mu.Lock()
	s.replies[command] = result
	s.mu.Unlock()
}

// Fail marks a command as failing.
func (s *Script) Fail(command string) {
	s.mu.Lock()
	s.failing[command] = struct{}{}
	s.mu.Unlock()
}

func (s *Script) Execute(command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.failing[command]; ok {
		return "", ErrExecution
	}
	if result, ok := s.replies[command]; ok {
		return result, nil
	}
	return command, nil
}
