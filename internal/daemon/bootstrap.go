package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// StartDaemon spawns the shield daemon from the running executable.
// args are appended after the daemon subcommand (e.g. --config).
func StartDaemon(args ...string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	return StartDaemonWithPath(executable, args...)
}

// StartDaemonWithPath spawns `<binaryPath> daemon [args...]` detached from the caller.
func StartDaemonWithPath(binaryPath string, args ...string) error {
	cmd := daemonCommand(binaryPath, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	// The child is reparented once we exit; release it so we don't hold a zombie.
	return cmd.Process.Release()
}

func daemonCommand(binaryPath string, args ...string) *exec.Cmd {
	cmd := exec.Command(binaryPath, append([]string{"daemon"}, args...)...)

	// Detach from parent process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd
}

// WaitForInstance polls the registry until a live instance is registered or
// ctx is done.
func WaitForInstance(ctx context.Context, registry domain.InstanceRegistry, interval time.Duration) (*domain.Instance, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		alive, err := registry.IsAlive()
		if err == nil && alive {
			return registry.Get()
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("daemon did not register: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
