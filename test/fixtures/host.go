// Package fixtures provides fake host collaborators for integration tests.
package fixtures

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// FakeSurface records the cover surface shown by the shield.
type FakeSurface struct {
	mu      sync.Mutex
	visible bool
	target  domain.Identifier
	notice  string
	shows   int
	fail    error
}

// NewFakeSurface creates a working surface. Use FailWith to make Show fail.
func NewFakeSurface() *FakeSurface {
	return &FakeSurface{}
}

// Show implements domain.CoverSurface.
func (f *FakeSurface) Show(ctx context.Context, id domain.Identifier, notice string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.visible = true
	f.target = id
	f.notice = notice
	f.shows++
	return nil
}

// Hide implements domain.CoverSurface.
func (f *FakeSurface) Hide() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible = false
	f.target = ""
	return nil
}

// FailWith makes subsequent Show calls fail with err (nil restores).
func (f *FakeSurface) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

// Covering returns the covered identifier, or "" when nothing is shown.
func (f *FakeSurface) Covering() domain.Identifier {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.visible {
		return ""
	}
	return f.target
}

// Notice returns the text of the last shown surface.
func (f *FakeSurface) Notice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notice
}

// Shows returns how many times a surface was raised.
func (f *FakeSurface) Shows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shows
}

// FakeNavigator records navigation-away requests.
type FakeNavigator struct {
	mu    sync.Mutex
	calls []domain.Identifier
}

// NavigateAway implements domain.Navigator.
func (f *FakeNavigator) NavigateAway(ctx context.Context, id domain.Identifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return nil
}

// Calls returns the identifiers navigated away from, in order.
func (f *FakeNavigator) Calls() []domain.Identifier {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Identifier(nil), f.calls...)
}

// FakePresenter returns a canned selection.
type FakePresenter struct {
	Selection string
	Err       error
}

// PresentSelection implements domain.SelectionPresenter.
func (f *FakePresenter) PresentSelection(ctx context.Context) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return f.Selection, nil
}

// MemKV is an in-memory domain.KeyValueStore.
type MemKV struct {
	mu     sync.Mutex
	values map[string]string
	closed bool
}

// NewMemKV creates an empty store.
func NewMemKV() *MemKV {
	return &MemKV{values: make(map[string]string)}
}

var errClosed = errors.New("store closed")

// Get implements domain.KeyValueStore.
func (m *MemKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", false, errClosed
	}
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements domain.KeyValueStore.
func (m *MemKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	m.values[key] = value
	return nil
}

// Close implements domain.KeyValueStore.
func (m *MemKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// FakeProcessManager is a process table with no processes.
type FakeProcessManager struct{}

func (FakeProcessManager) FindByName(name string) ([]int, error) { return nil, nil }
func (FakeProcessManager) ListNames() (map[int]string, error)    { return map[int]string{}, nil }
func (FakeProcessManager) Kill(pid int) error                    { return nil }
func (FakeProcessManager) IsRunning(pid int) bool                { return false }
func (FakeProcessManager) GetCurrentPID() int                    { return os.Getpid() }

var (
	_ domain.CoverSurface       = (*FakeSurface)(nil)
	_ domain.Navigator          = (*FakeNavigator)(nil)
	_ domain.SelectionPresenter = (*FakePresenter)(nil)
	_ domain.KeyValueStore      = (*MemKV)(nil)
	_ domain.ProcessManager     = FakeProcessManager{}
)
