package domain

import (
	"context"
	"time"
)

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByName returns PIDs of processes whose name equals the given name exactly.
	FindByName(name string) ([]int, error)

	// ListNames returns the current process table as PID -> name.
	ListNames() (map[int]string, error)

	// Kill terminates a process by PID (SIGKILL).
	Kill(pid int) error

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// ForegroundSink receives foreground transitions pushed by a host adapter.
type ForegroundSink interface {
	// Notify hands one event to the observation session. It blocks until the
	// consumer accepts it, the session ends, or ctx is done.
	Notify(ctx context.Context, ev ForegroundEvent) error
}

// ForegroundSource is the host side of foreground observation.
// Observe pushes transitions into sink until ctx is done (returns nil) or the
// observation capability is lost (returns an error).
type ForegroundSource interface {
	Name() string
	Observe(ctx context.Context, sink ForegroundSink) error
}

// CoverSurface is the opaque full-area cover shown over a blocked target.
type CoverSurface interface {
	// Show raises the surface for id with a static notice.
	Show(ctx context.Context, id Identifier, notice string) error

	// Hide tears the surface down. Hiding an absent surface is a no-op.
	Hide() error
}

// Navigator forces the user away from a blocked context.
type Navigator interface {
	NavigateAway(ctx context.Context, id Identifier) error
}

// SelectionPresenter shows the platform's target picker.
// It blocks until the user completes or cancels the selection.
type SelectionPresenter interface {
	PresentSelection(ctx context.Context) (string, error)
}

// SnapshotSource reads the last-known persisted block list and flag.
// A nil snapshot with nil error means nothing has been persisted yet.
type SnapshotSource interface {
	LoadSnapshot() (*Snapshot, error)
}

// SnapshotStore reads and writes the persisted snapshot keys.
type SnapshotStore interface {
	SnapshotSource

	SaveTargets(ids []Identifier) error
	SaveShieldActive(active bool) error
}

// KeyValueStore is the external key-value source holding controller state.
type KeyValueStore interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)

	// Set stores a value.
	Set(key, value string) error

	// Close releases resources (e.g., database connection).
	Close() error
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// InstanceRegistry records the running shield daemon.
// Implementation: flock-guarded JSON file in the data directory.
type InstanceRegistry interface {
	// Register claims the host for this instance. Returns ErrAlreadyRunning if
	// another live instance is registered.
	Register(inst Instance) error

	// Get returns the registered instance, or nil if none.
	Get() (*Instance, error)

	// IsAlive checks whether the registered instance is running.
	IsAlive() (bool, error)

	// UpdateHeartbeat refreshes the liveness timestamp.
	UpdateHeartbeat(at time.Time) error

	// Clear removes the instance record.
	Clear() error

	// Path returns the instance file path (for tests).
	Path() string
}

// AutostartManager registers the shield daemon to start at login (user mode)
// or boot (system mode).
// Implementation: launchd plist.
type AutostartManager interface {
	Install(ctx context.Context, execPath string) error
	Uninstall(ctx context.Context) error
	IsInstalled() bool
	NeedsUpdate(execPath string) bool
	Path() string
}
