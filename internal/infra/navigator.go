package infra

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// ProcessNavigator implements domain.Navigator on desktop hosts: processes
// named exactly like the blocked identifier are killed, then the optional
// home command brings a neutral context forward.
type ProcessNavigator struct {
	pm          domain.ProcessManager
	runner      CommandRunner
	homeCommand []string
	logger      *zap.Logger
}

// NewProcessNavigator creates a navigator.
func NewProcessNavigator(pm domain.ProcessManager, runner CommandRunner, homeCommand []string, logger *zap.Logger) *ProcessNavigator {
	return &ProcessNavigator{
		pm:          pm,
		runner:      runner,
		homeCommand: homeCommand,
		logger:      logger,
	}
}

// NavigateAway kills every process of id and runs the home command.
func (n *ProcessNavigator) NavigateAway(ctx context.Context, id domain.Identifier) error {
	pids, err := n.pm.FindByName(string(id))
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", id, err)
	}

	var errs []error
	selfPID := n.pm.GetCurrentPID()
	for _, pid := range pids {
		if pid == selfPID {
			continue
		}
		if err := n.pm.Kill(pid); err != nil {
			n.logger.Warn("failed to kill blocked process",
				zap.String("identifier", string(id)),
				zap.Int("pid", pid),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		n.logger.Info("killed blocked process",
			zap.String("identifier", string(id)),
			zap.Int("pid", pid))
	}

	if len(n.homeCommand) > 0 {
		if err := n.runner.Run(ctx, n.homeCommand); err != nil {
			errs = append(errs, fmt.Errorf("home command: %w", err))
		}
	}

	return errors.Join(errs...)
}

var _ domain.Navigator = (*ProcessNavigator)(nil)
