package runner

import (
	"context"
	"fmt"
	"sync"
)

// FakeCommand simulates a command execution. It receives the full argv
// and returns the error the command would exit with.
type FakeCommand func(argv []string) error

// FakeRunner is a test Runner that dispatches to registered fake
// commands and records every invocation in order.
type FakeRunner struct {
	mu       sync.Mutex
	commands map[string]FakeCommand
	calls    [][]string
}

// NewFakeRunner creates a FakeRunner with no registered commands.
// Unregistered commands succeed, so tests only script the commands
// whose behavior they care about.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{commands: make(map[string]FakeCommand)}
}

// RegisterCommand registers a handler for argv[0].
func (r *FakeRunner) RegisterCommand(name string, handler FakeCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = handler
}

// Calls returns a copy of every argv passed to Run, in call order.
func (r *FakeRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := make([][]string, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// Run implements Runner.
func (r *FakeRunner) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.calls = append(r.calls, append([]string(nil), argv...))
	handler := r.commands[argv[0]]
	r.mu.Unlock()

	if handler == nil {
		return nil
	}
	return handler(argv)
}
