package systemd

import (
	"context"
	"fmt"
	"sync"
)

// FakeManager is a test Manager that records every operation and tracks
// per-unit enabled/active state in memory.
type FakeManager struct {
	mu      sync.Mutex
	ops     []string
	enabled map[string]bool
	active  map[string]bool

	// FailOn, when non-empty, makes the named operation ("reload",
	// "enable", "start", ...) return an error.
	FailOn string
}

// NewFakeManager creates an empty FakeManager.
func NewFakeManager() *FakeManager {
	return &FakeManager{
		enabled: make(map[string]bool),
		active:  make(map[string]bool),
	}
}

// Ops returns the recorded operations in call order, formatted as
// "verb unit" (or just "verb" for reload).
func (m *FakeManager) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func (m *FakeManager) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
}

func (m *FakeManager) fail(verb string) error {
	if m.FailOn == verb {
		return fmt.Errorf("%s: simulated failure", verb)
	}
	return nil
}

func (m *FakeManager) Reload(ctx context.Context) error {
	m.record("reload")
	return m.fail("reload")
}

func (m *FakeManager) Enable(ctx context.Context, units []string) error {
	for _, u := range units {
		m.record("enable " + u)
		m.mu.Lock()
		m.enabled[u] = true
		m.mu.Unlock()
	}
	return m.fail("enable")
}

func (m *FakeManager) Disable(ctx context.Context, units []string) error {
	for _, u := range units {
		m.record("disable " + u)
		m.mu.Lock()
		m.enabled[u] = false
		m.mu.Unlock()
	}
	return m.fail("disable")
}

func (m *FakeManager) Start(ctx context.Context, unit string) error {
	m.record("start " + unit)
	m.mu.Lock()
	m.active[unit] = true
	m.mu.Unlock()
	return m.fail("start")
}

func (m *FakeManager) Stop(ctx context.Context, unit string) error {
	m.record("stop " + unit)
	m.mu.Lock()
	m.active[unit] = false
	m.mu.Unlock()
	return m.fail("stop")
}

func (m *FakeManager) Status(ctx context.Context, unit string) (*UnitStatus, error) {
	m.record("status " + unit)
	if err := m.fail("status"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	status := &UnitStatus{Name: unit, ActiveState: "inactive", UnitFileState: "disabled"}
	if m.active[unit] {
		status.ActiveState = "active"
		status.MainPID = 1234
	}
	if m.enabled[unit] {
		status.UnitFileState = "enabled"
	}
	return status, nil
}

func (m *FakeManager) Close() error { return nil }
