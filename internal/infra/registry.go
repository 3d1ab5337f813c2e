package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

const instanceFileName = "instance.json"

// FileInstanceRegistry implements domain.InstanceRegistry using a JSON file
// in the data directory, guarded by an flock.
type FileInstanceRegistry struct {
	path           string
	processManager domain.ProcessManager
}

// NewFileInstanceRegistry creates a registry in dataDir.
func NewFileInstanceRegistry(dataDir string, pm domain.ProcessManager) *FileInstanceRegistry {
	return NewFileInstanceRegistryWithPath(filepath.Join(dataDir, instanceFileName), pm)
}

// NewFileInstanceRegistryWithPath creates a registry at a specific path (for testing).
func NewFileInstanceRegistryWithPath(path string, pm domain.ProcessManager) *FileInstanceRegistry {
	return &FileInstanceRegistry{
		path:           path,
		processManager: pm,
	}
}

// Path returns the instance file path.
func (r *FileInstanceRegistry) Path() string {
	return r.path
}

// Register claims the host for inst. A record left by a dead process is
// replaced; a live one yields domain.ErrAlreadyRunning.
func (r *FileInstanceRegistry) Register(inst domain.Instance) error {
	return r.withLock(func() error {
		existing, err := r.Get()
		if err != nil {
			return err
		}
		if existing != nil && existing.PID != inst.PID && r.processManager.IsRunning(existing.PID) {
			return fmt.Errorf("%w (pid %d)", domain.ErrAlreadyRunning, existing.PID)
		}

		now := time.Now().Unix()
		if inst.StartedAt == 0 {
			inst.StartedAt = now
		}
		inst.LastHeartbeat = now

		// Auto-detect and store execution mode
		if inst.Mode == "" {
			if os.Geteuid() == 0 {
				inst.Mode = string(ExecModeSystem)
			} else {
				inst.Mode = string(ExecModeUser)
			}
		}

		return r.atomicWrite(&inst)
	})
}

// Get returns the registered instance, or nil if none.
func (r *FileInstanceRegistry) Get() (*domain.Instance, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var inst domain.Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("corrupt instance record: %w", err)
	}
	return &inst, nil
}

// IsAlive checks whether the registered instance is running via PID.
func (r *FileInstanceRegistry) IsAlive() (bool, error) {
	inst, err := r.Get()
	if err != nil {
		return false, err
	}
	if inst == nil {
		return false, nil
	}
	return r.processManager.IsRunning(inst.PID), nil
}

// UpdateHeartbeat refreshes the liveness timestamp.
func (r *FileInstanceRegistry) UpdateHeartbeat(at time.Time) error {
	return r.withLock(func() error {
		inst, err := r.Get()
		if err != nil {
			return err
		}
		if inst == nil {
			return fmt.Errorf("no instance registered at %s", r.path)
		}
		inst.LastHeartbeat = at.Unix()
		return r.atomicWrite(inst)
	})
}

// Clear removes the instance record.
func (r *FileInstanceRegistry) Clear() error {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// withLock runs fn holding an exclusive flock on the registry lock file.
func (r *FileInstanceRegistry) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	lockFile, err := os.OpenFile(r.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	return fn()
}

// atomicWrite writes the record to file atomically (write + rename).
func (r *FileInstanceRegistry) atomicWrite(inst *domain.Instance) error {
	data, err := json.Marshal(inst)
	if err != nil {
		return err
	}
	return atomicWriteFile(r.path, data)
}

// Ensure FileInstanceRegistry implements domain.InstanceRegistry.
var _ domain.InstanceRegistry = (*FileInstanceRegistry)(nil)
