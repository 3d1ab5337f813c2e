package usecase

import (
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// TargetView is an immutable snapshot of the block list and shield flag.
// Readers take one view per evaluation and never observe a half-updated set.
type TargetView struct {
	targets      map[domain.Identifier]struct{}
	shieldActive bool
}

// ShieldActive reports the flag captured in this view.
func (v *TargetView) ShieldActive() bool {
	return v.shieldActive
}

// Contains reports exact membership of id.
func (v *TargetView) Contains(id domain.Identifier) bool {
	_, ok := v.targets[id]
	return ok
}

// Len returns the number of distinct targets.
func (v *TargetView) Len() int {
	return len(v.targets)
}

// Targets returns the targets sorted for stable output.
func (v *TargetView) Targets() []domain.Identifier {
	ids := make([]domain.Identifier, 0, len(v.targets))
	for id := range v.targets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func newView(ids []domain.Identifier, active bool) *TargetView {
	set := make(map[domain.Identifier]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &TargetView{targets: set, shieldActive: active}
}

// BlockListStore holds the active targets and the shield flag.
// Writes are serialized and published as whole views; reads are lock-free.
type BlockListStore struct {
	mu           sync.Mutex // Serializes writers
	view         atomic.Pointer[TargetView]
	snapshots    domain.SnapshotSource
	onDeactivate func()
	logger       *zap.Logger
}

// NewBlockListStore creates an empty, inactive store.
// snapshots may be nil when no persisted source exists.
func NewBlockListStore(snapshots domain.SnapshotSource, logger *zap.Logger) *BlockListStore {
	s := &BlockListStore{
		snapshots: snapshots,
		logger:    logger,
	}
	s.view.Store(newView(nil, false))
	return s
}

// OnDeactivate registers the hook run synchronously when the shield turns off.
func (s *BlockListStore) OnDeactivate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDeactivate = fn
}

// View returns the current immutable view.
func (s *BlockListStore) View() *TargetView {
	return s.view.Load()
}

// ReplaceTargets atomically swaps the full identifier set.
// Identifiers are accepted verbatim.
func (s *BlockListStore) ReplaceTargets(ids []domain.Identifier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.view.Load()
	next := newView(ids, cur.shieldActive)
	s.view.Store(next)

	s.logger.Info("block list replaced",
		zap.Int("targets", next.Len()),
		zap.Bool("shield_active", next.shieldActive))
}

// SetShieldActive flips the shield flag.
// Turning on refreshes targets from the persisted snapshot; turning off clears
// the intercept surface before returning.
func (s *BlockListStore) SetShieldActive(active bool) {
	s.mu.Lock()
	cur := s.view.Load()
	wasActive := cur.shieldActive

	var next *TargetView
	if active && !wasActive {
		next = newView(s.refreshTargets(cur), true)
	} else {
		next = &TargetView{targets: cur.targets, shieldActive: active}
	}
	s.view.Store(next)
	hook := s.onDeactivate
	s.mu.Unlock()

	s.logger.Info("shield flag set",
		zap.Bool("shield_active", active),
		zap.Bool("was_active", wasActive),
		zap.Int("targets", next.Len()))

	if !active && hook != nil {
		hook()
	}
}

// refreshTargets returns the persisted targets, or the in-memory ones when no
// list has been persisted. Must be called with mu held.
func (s *BlockListStore) refreshTargets(cur *TargetView) []domain.Identifier {
	inMemory := cur.Targets()
	if s.snapshots == nil {
		return inMemory
	}

	snap, err := s.snapshots.LoadSnapshot()
	if err != nil {
		s.logger.Warn("persisted snapshot unreadable, keeping in-memory block list",
			zap.Int("targets", len(inMemory)),
			zap.Error(err))
		return inMemory
	}
	if snap == nil || !snap.HasTargets {
		s.logger.Debug("no persisted block list, keeping in-memory block list",
			zap.Int("targets", len(inMemory)))
		return inMemory
	}

	return snap.Targets
}

// Reconcile adopts the persisted snapshot on cold start. The shield may have
// been activated by an earlier controller invocation while no engine ran.
func (s *BlockListStore) Reconcile() error {
	if s.snapshots == nil {
		return nil
	}

	snap, err := s.snapshots.LoadSnapshot()
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}

	s.mu.Lock()
	targets := s.view.Load().Targets()
	if snap.HasTargets {
		targets = snap.Targets
	}
	s.view.Store(newView(targets, snap.ShieldActive))
	s.mu.Unlock()

	s.logger.Info("reconciled with persisted snapshot",
		zap.Int("targets", len(targets)),
		zap.Bool("has_targets", snap.HasTargets),
		zap.Bool("shield_active", snap.ShieldActive))
	return nil
}

// Reset empties the store and turns the shield off (explicit stop/teardown).
func (s *BlockListStore) Reset() {
	s.mu.Lock()
	s.view.Store(newView(nil, false))
	hook := s.onDeactivate
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}
