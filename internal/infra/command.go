package infra

import (
	"context"
	"errors"
	"os"
	"os/exec"
)

// CommandRunner abstracts command execution for testing
type CommandRunner interface {
	// Run executes argv and waits for it to complete.
	Run(ctx context.Context, argv []string) error

	// Output executes argv and returns its stdout.
	Output(ctx context.Context, argv []string) ([]byte, error)

	// Start launches argv with extra environment and returns without waiting.
	Start(argv []string, env []string) (RunningCommand, error)
}

// RunningCommand is a started, long-lived command.
type RunningCommand interface {
	// Stop kills the command and reaps it.
	Stop() error

	// Done is closed when the command exits.
	Done() <-chan struct{}
}

var errEmptyCommand = errors.New("empty command")

// ExecRunner executes real system commands
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errEmptyCommand
	}
	return exec.CommandContext(ctx, argv[0], argv[1:]...).Run()
}

func (ExecRunner) Output(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errEmptyCommand
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = nil // Prevent any interactive prompts
	return cmd.Output()
}

func (ExecRunner) Start(argv []string, env []string) (RunningCommand, error) {
	if len(argv) == 0 {
		return nil, errEmptyCommand
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), env...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	rc := &execCommand{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(rc.done)
	}()
	return rc, nil
}

type execCommand struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (c *execCommand) Stop() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-c.done
	return nil
}

func (c *execCommand) Done() <-chan struct{} {
	return c.done
}

var _ CommandRunner = ExecRunner{}
