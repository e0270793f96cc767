// Package rollback implements the scoped-acquire / guaranteed-release
// stack that the hypervisor handle uses to undo every observable side
// effect it performs, in reverse acquisition order, on any failure path
// or explicit teardown.
package rollback

import (
	"context"
	"log/slog"
	"sync"
)

// Stack is an append-only, LIFO-unwound record of reversible effects.
// It is safe for concurrent Push/Insert1 calls. The owner calls Unwind
// once it has stopped pushing; calling Unwind again is a no-op.
type Stack struct {
	mu      sync.Mutex
	entries []Entry
	logger  *slog.Logger
}

// New returns an empty rollback stack. A nil logger defaults to slog.Default().
func New(logger *slog.Logger) *Stack {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stack{logger: logger}
}

// Push records entry as the most recently acquired effect.
func (s *Stack) Push(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// Insert1 inserts entry immediately before the most-recently-pushed entry,
// keeping that most-recent entry on top. Used when an effect acquired
// after StopProcess (e.g. RemoveSocket, once the socket appears) must
// still unwind after the process is signaled to exit, not before: the
// construction sequence pushes StopProcess once the child is spawned,
// then Insert1(RemoveSocket) once the socket file is observed, so Unwind
// stops the process first and only then removes its socket file.
func (s *Stack) Insert1(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		s.entries = append(s.entries, e)
		return
	}

	last := len(s.entries) - 1
	s.entries = append(s.entries, nil)
	copy(s.entries[last+1:], s.entries[last:])
	s.entries[last] = e
}

// Len reports the number of recorded entries.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Unwind pops entries and executes their undo action in reverse
// (most-recently-acquired-first) order. Unwind is idempotent: calling it
// again after the stack is drained is a no-op. Undo errors are logged,
// never returned; unwinding continues with the next entry, and an entry
// whose undo failed is not retried by a later call.
func (s *Stack) Unwind(ctx context.Context) {
	s.mu.Lock()
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if err := e.Undo(ctx); err != nil {
			s.logger.Warn("rollback undo failed", "entry", e.Describe(), "error", err)
			continue
		}
		s.logger.Info("rollback undo complete", "entry", e.Describe())
	}
}
