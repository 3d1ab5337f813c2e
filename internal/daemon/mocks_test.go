package daemon

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// mockRegistry implements domain.InstanceRegistry for testing
type mockRegistry struct {
	mu          sync.Mutex
	inst        *domain.Instance
	registerErr error
	alive       bool
	heartbeats  int
	cleared     bool
}

func (m *mockRegistry) Register(inst domain.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registerErr != nil {
		return m.registerErr
	}
	m.inst = &inst
	m.alive = true
	return nil
}

func (m *mockRegistry) Get() (*domain.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inst == nil {
		return nil, nil
	}
	inst := *m.inst
	return &inst, nil
}

func (m *mockRegistry) IsAlive() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inst != nil && m.alive, nil
}

func (m *mockRegistry) UpdateHeartbeat(at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeats++
	return nil
}

func (m *mockRegistry) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inst = nil
	m.cleared = true
	return nil
}

func (m *mockRegistry) Path() string { return "/tmp/mock-instance.json" }

func (m *mockRegistry) isCleared() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleared
}

// mockProcessManager is a minimal domain.ProcessManager
type mockProcessManager struct{}

func (mockProcessManager) FindByName(name string) ([]int, error) { return nil, nil }
func (mockProcessManager) ListNames() (map[int]string, error)    { return map[int]string{}, nil }
func (mockProcessManager) Kill(pid int) error                    { return nil }
func (mockProcessManager) IsRunning(pid int) bool                { return false }
func (mockProcessManager) GetCurrentPID() int                    { return os.Getpid() }

// mockSurface implements domain.CoverSurface for testing
type mockSurface struct {
	mu      sync.Mutex
	current domain.Identifier
	visible bool
}

func (m *mockSurface) Show(ctx context.Context, id domain.Identifier, notice string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = id
	m.visible = true
	return nil
}

func (m *mockSurface) Hide() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = false
	return nil
}

func (m *mockSurface) isVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

// mockNavigator implements domain.Navigator for testing
type mockNavigator struct {
	mu   sync.Mutex
	away []domain.Identifier
}

func (m *mockNavigator) NavigateAway(ctx context.Context, id domain.Identifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.away = append(m.away, id)
	return nil
}

// memKV is an in-memory domain.KeyValueStore
type memKV struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemKV() *memKV {
	return &memKV{values: make(map[string]string)}
}

func (m *memKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memKV) Close() error { return nil }
