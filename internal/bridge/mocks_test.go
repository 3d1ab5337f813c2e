package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// mockStore implements TargetStore for testing
type mockStore struct {
	mu      sync.Mutex
	targets []domain.Identifier
	active  bool
	calls   []string
}

func (m *mockStore) ReplaceTargets(ids []domain.Identifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = ids
	m.calls = append(m.calls, "replace")
}

func (m *mockStore) SetShieldActive(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = active
	m.calls = append(m.calls, "active")
}

// mockEngine implements StatusReader over a mockStore
type mockEngine struct {
	store  *mockStore
	health domain.Health
}

func (m *mockEngine) ShieldActive() bool {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.active
}

func (m *mockEngine) Health() domain.Health {
	if m.health == "" {
		return domain.HealthOK
	}
	return m.health
}

func (m *mockEngine) Status() domain.Status {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return domain.Status{
		ShieldActive: m.store.active,
		Targets:      m.store.targets,
		Health:       m.Health(),
	}
}

// mockSnapshots implements domain.SnapshotStore for testing
type mockSnapshots struct {
	targets []domain.Identifier
	active  *bool
	err     error
}

func (m *mockSnapshots) LoadSnapshot() (*domain.Snapshot, error) {
	return nil, m.err
}

func (m *mockSnapshots) SaveTargets(ids []domain.Identifier) error {
	if m.err != nil {
		return m.err
	}
	m.targets = ids
	return nil
}

func (m *mockSnapshots) SaveShieldActive(active bool) error {
	if m.err != nil {
		return m.err
	}
	m.active = &active
	return nil
}

// mockPresenter implements domain.SelectionPresenter for testing
type mockPresenter struct {
	blob string
	err  error
}

func (m *mockPresenter) PresentSelection(ctx context.Context) (string, error) {
	return m.blob, m.err
}

// blockingPresenter holds the picker open until release is closed
type blockingPresenter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (m *blockingPresenter) PresentSelection(ctx context.Context) (string, error) {
	m.once.Do(func() { close(m.entered) })
	<-m.release
	return `{"apps":[]}`, nil
}

// mockReporter implements ForegroundReporter for testing
type mockReporter struct {
	err  error
	id   domain.Identifier
	at   time.Time
	seen int
}

func (m *mockReporter) Push(ctx context.Context, id domain.Identifier, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.id = id
	m.at = at
	m.seen++
	return nil
}

// unknownRequest is a Request variant Handle does not dispatch.
type unknownRequest struct{}

func (unknownRequest) isRequest() {}
