package infra

import (
	"errors"
	"os"
	"sync"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// mockProcessManager is a test double for ProcessManager
type mockProcessManager struct {
	mu          sync.Mutex
	names       map[int]string
	listErr     error
	killedPIDs  []int
	runningPIDs map[int]bool
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{
		names:       make(map[int]string),
		runningPIDs: make(map[int]bool),
	}
}

func (m *mockProcessManager) FindByName(name string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var pids []int
	for pid, n := range m.names {
		if n == name {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

func (m *mockProcessManager) ListNames() (map[int]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make(map[int]string, len(m.names))
	for pid, n := range m.names {
		out[pid] = n
	}
	return out, nil
}

func (m *mockProcessManager) Kill(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killedPIDs = append(m.killedPIDs, pid)
	delete(m.names, pid)
	delete(m.runningPIDs, pid)
	return nil
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runningPIDs[pid]
}

func (m *mockProcessManager) GetCurrentPID() int {
	return os.Getpid()
}

func (m *mockProcessManager) SetRunning(pid int, running bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runningPIDs[pid] = running
}

func (m *mockProcessManager) Start(pid int, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[pid] = name
	m.runningPIDs[pid] = true
}

func (m *mockProcessManager) SetListErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

func (m *mockProcessManager) Killed() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.killedPIDs...)
}

// memKV is an in-memory domain.KeyValueStore
type memKV struct {
	values map[string]string
	err    error
}

func newMemKV() *memKV {
	return &memKV{values: make(map[string]string)}
}

func (m *memKV) Get(key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) Set(key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *memKV) Close() error { return nil }

var errStoreDown = errors.New("store unavailable")

var (
	_ domain.ProcessManager = (*mockProcessManager)(nil)
	_ domain.KeyValueStore  = (*memKV)(nil)
)
