package usecase

import (
	"context"
	"sync"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// mockSurface implements domain.CoverSurface for testing
type mockSurface struct {
	mu      sync.Mutex
	showErr error
	hideErr error
	shown   []domain.Identifier
	hidden  int
	notice  string
	current domain.Identifier
}

func (m *mockSurface) Show(ctx context.Context, id domain.Identifier, notice string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.showErr != nil {
		return m.showErr
	}
	m.shown = append(m.shown, id)
	m.notice = notice
	m.current = id
	return nil
}

func (m *mockSurface) Hide() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hidden++
	m.current = ""
	return m.hideErr
}

func (m *mockSurface) showCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shown)
}

// mockNavigator implements domain.Navigator for testing
type mockNavigator struct {
	mu       sync.Mutex
	err      error
	awayFrom []domain.Identifier
}

func (m *mockNavigator) NavigateAway(ctx context.Context, id domain.Identifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.awayFrom = append(m.awayFrom, id)
	return m.err
}

// mockSnapshotSource implements domain.SnapshotSource for testing
type mockSnapshotSource struct {
	snapshot *domain.Snapshot
	err      error
	loads    int
}

func (m *mockSnapshotSource) LoadSnapshot() (*domain.Snapshot, error) {
	m.loads++
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot, nil
}

// scriptedStream implements EventStream from a fixed list of events
type scriptedStream struct {
	events []domain.ForegroundEvent
	endErr error
	pos    int
}

func (s *scriptedStream) Next(ctx context.Context) (domain.ForegroundEvent, error) {
	if s.pos >= len(s.events) {
		return domain.ForegroundEvent{}, s.endErr
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

// blockingStream never yields an event; Next waits for ctx.
type blockingStream struct {
	started chan struct{}
	once    sync.Once
}

func (s *blockingStream) Next(ctx context.Context) (domain.ForegroundEvent, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return domain.ForegroundEvent{}, ctx.Err()
}
