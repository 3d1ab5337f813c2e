package infra

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// Keys the controller and the daemon share in the external store.
const (
	KeyActiveBlockList = "active_block_list"
	KeyShieldActive    = "shield_active"
)

// blockListRecord is the persisted form of the block list.
type blockListRecord struct {
	BlockedPackageNames []string `json:"blocked_package_names"`
}

// KVSnapshotStore implements domain.SnapshotStore over a KeyValueStore.
type KVSnapshotStore struct {
	kv domain.KeyValueStore
}

// NewKVSnapshotStore creates a snapshot store over kv.
func NewKVSnapshotStore(kv domain.KeyValueStore) *KVSnapshotStore {
	return &KVSnapshotStore{kv: kv}
}

// LoadSnapshot reads both keys. It returns nil when neither has been written.
// A missing flag reads as inactive. A missing list leaves HasTargets unset.
func (s *KVSnapshotStore) LoadSnapshot() (*domain.Snapshot, error) {
	rawList, hasList, err := s.kv.Get(KeyActiveBlockList)
	if err != nil {
		return nil, err
	}
	rawFlag, hasFlag, err := s.kv.Get(KeyShieldActive)
	if err != nil {
		return nil, err
	}
	if !hasList && !hasFlag {
		return nil, nil
	}

	snap := &domain.Snapshot{}
	if hasList {
		var rec blockListRecord
		if err := json.Unmarshal([]byte(rawList), &rec); err != nil {
			return nil, fmt.Errorf("malformed %s: %w", KeyActiveBlockList, err)
		}
		snap.Targets = domain.Identifiers(rec.BlockedPackageNames)
		snap.HasTargets = true
	}
	if hasFlag {
		active, err := strconv.ParseBool(rawFlag)
		if err != nil {
			return nil, fmt.Errorf("malformed %s: %w", KeyShieldActive, err)
		}
		snap.ShieldActive = active
	}
	return snap, nil
}

// SaveTargets persists the block list.
func (s *KVSnapshotStore) SaveTargets(ids []domain.Identifier) error {
	data, err := json.Marshal(blockListRecord{BlockedPackageNames: domain.Strings(ids)})
	if err != nil {
		return err
	}
	return s.kv.Set(KeyActiveBlockList, string(data))
}

// SaveShieldActive persists the shield flag.
func (s *KVSnapshotStore) SaveShieldActive(active bool) error {
	return s.kv.Set(KeyShieldActive, strconv.FormatBool(active))
}

var _ domain.SnapshotStore = (*KVSnapshotStore)(nil)
