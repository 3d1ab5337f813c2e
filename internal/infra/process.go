// Package infra implements host adapters (process table, cover surface,
// selection UI), persistence and configuration for the shield daemon.
package infra

import (
	"os"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// FindByName returns PIDs of processes whose name equals name exactly.
// Identifiers are opaque, so there is no case folding or substring match.
func (pm *ProcessManagerImpl) FindByName(name string) ([]int, error) {
	names, err := pm.ListNames()
	if err != nil {
		return nil, err
	}

	var found []int
	for pid, n := range names {
		if n == name {
			found = append(found, pid)
		}
	}
	return found, nil
}

// ListNames returns the current process table as PID -> name.
func (pm *ProcessManagerImpl) ListNames() (map[int]string, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	names := make(map[int]string, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // Process may have exited
		}
		names[int(p.Pid)] = name
	}
	return names, nil
}

// Kill terminates a process by PID using SIGKILL.
func (pm *ProcessManagerImpl) Kill(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Kill()
}

// IsRunning checks if a PID exists and is running.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	// On Unix, FindProcess always succeeds
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Send signal 0 to check if process exists
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// GetCurrentPID returns the current process PID.
func (pm *ProcessManagerImpl) GetCurrentPID() int {
	return os.Getpid()
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
