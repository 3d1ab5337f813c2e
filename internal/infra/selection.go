package infra

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// CommandSelectionPresenter implements domain.SelectionPresenter by running
// the host's picker program, which prints the selection blob on stdout.
// A non-zero exit means the user dismissed the picker.
type CommandSelectionPresenter struct {
	runner CommandRunner
	argv   []string
}

// NewCommandSelectionPresenter creates a presenter for argv.
func NewCommandSelectionPresenter(runner CommandRunner, argv []string) *CommandSelectionPresenter {
	return &CommandSelectionPresenter{runner: runner, argv: argv}
}

// PresentSelection runs the picker and returns its output unmodified.
func (p *CommandSelectionPresenter) PresentSelection(ctx context.Context) (string, error) {
	if len(p.argv) == 0 {
		return "", fmt.Errorf("%w: no selection command configured", domain.ErrNoHostContext)
	}

	out, err := p.runner.Output(ctx, p.argv)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrSelectionCancelled, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: picker exited with %d", domain.ErrSelectionCancelled, exitErr.ExitCode())
		}
		return "", fmt.Errorf("%w: %v", domain.ErrNoHostContext, err)
	}
	return string(out), nil
}

var _ domain.SelectionPresenter = (*CommandSelectionPresenter)(nil)
