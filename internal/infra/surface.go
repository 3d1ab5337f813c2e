package infra

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// Environment passed to the cover command.
const (
	EnvCoverTarget = "SHIELD_TARGET"
	EnvCoverNotice = "SHIELD_NOTICE"
)

// ErrNoCoverCommand means no cover surface is configured on this host.
var ErrNoCoverCommand = errors.New("no cover command configured")

// CommandSurface implements domain.CoverSurface by running a configured
// full-screen cover program for as long as the surface is shown.
type CommandSurface struct {
	mu      sync.Mutex
	runner  CommandRunner
	argv    []string
	running RunningCommand
	logger  *zap.Logger
}

// NewCommandSurface creates a surface; an empty argv makes every Show fail,
// which the engine treats as degraded enforcement.
func NewCommandSurface(runner CommandRunner, argv []string, logger *zap.Logger) *CommandSurface {
	return &CommandSurface{
		runner: runner,
		argv:   argv,
		logger: logger,
	}
}

// Show starts the cover program for id, replacing any running one.
func (s *CommandSurface) Show(ctx context.Context, id domain.Identifier, notice string) error {
	if len(s.argv) == 0 {
		return ErrNoCoverCommand
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stopLocked(); err != nil {
		s.logger.Warn("failed to stop previous cover", zap.Error(err))
	}

	rc, err := s.runner.Start(s.argv, []string{
		EnvCoverTarget + "=" + string(id),
		EnvCoverNotice + "=" + notice,
	})
	if err != nil {
		return fmt.Errorf("failed to start cover: %w", err)
	}
	s.running = rc
	return nil
}

// Hide stops the cover program. Hiding an absent surface is a no-op.
func (s *CommandSurface) Hide() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *CommandSurface) stopLocked() error {
	if s.running == nil {
		return nil
	}
	rc := s.running
	s.running = nil
	return rc.Stop()
}

// Visible reports whether a cover program is running.
func (s *CommandSurface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		return false
	}
	select {
	case <-s.running.Done():
		return false
	default:
		return true
	}
}

var _ domain.CoverSurface = (*CommandSurface)(nil)
