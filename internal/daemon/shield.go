// Package daemon runs the shield: the enforcement engine, its foreground
// observation session and the controller bridge, for the lifetime of the process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/shield_mon/internal/bridge"
	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
	"github.com/eliteGoblin/focusd/shield_mon/internal/monitor"
	"github.com/eliteGoblin/focusd/shield_mon/internal/usecase"
)

// ShieldConfig holds shield daemon configuration.
type ShieldConfig struct {
	SocketPath        string
	AppVersion        string
	HeartbeatInterval time.Duration // How often to refresh the instance record
	ObserveRetry      time.Duration // Delay before re-attaching after observation is lost
	ShutdownGrace     time.Duration // How long in-flight bridge calls may drain on stop
}

// DefaultShieldConfig returns default shield configuration.
func DefaultShieldConfig() ShieldConfig {
	return ShieldConfig{
		HeartbeatInterval: 30 * time.Second,
		ObserveRetry:      5 * time.Second,
		ShutdownGrace:     bridge.DefaultDrainTimeout,
	}
}

// Shield is the enforcement daemon. It owns exactly one engine, feeds it from
// one observation session at a time and serves the bridge to controllers.
type Shield struct {
	config    ShieldConfig
	store     *usecase.BlockListStore
	engine    *usecase.EnforcementEngine
	intercept *usecase.InterceptAction
	source    domain.ForegroundSource
	registry  domain.InstanceRegistry
	server    *bridge.Server
	pm        domain.ProcessManager
	listen    func() (net.Listener, error)
	logger    *zap.Logger

	mu      sync.Mutex
	session *monitor.Session
}

// NewShield creates a new shield daemon.
func NewShield(
	config ShieldConfig,
	store *usecase.BlockListStore,
	engine *usecase.EnforcementEngine,
	intercept *usecase.InterceptAction,
	source domain.ForegroundSource,
	registry domain.InstanceRegistry,
	server *bridge.Server,
	pm domain.ProcessManager,
	logger *zap.Logger,
) *Shield {
	s := &Shield{
		config:    config,
		store:     store,
		engine:    engine,
		intercept: intercept,
		source:    source,
		registry:  registry,
		server:    server,
		pm:        pm,
		logger:    logger,
	}
	s.listen = func() (net.Listener, error) { return bridge.Listen(config.SocketPath) }
	return s
}

// WithListener serves the bridge on lis instead of the configured socket.
func (s *Shield) WithListener(lis net.Listener) *Shield {
	s.listen = func() (net.Listener, error) { return lis, nil }
	return s
}

// SessionID returns the ID of the current observation session, if any.
func (s *Shield) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.ID()
}

// Run starts the shield daemon loop.
// This blocks until context is canceled, then tears everything down.
func (s *Shield) Run(ctx context.Context) error {
	inst := domain.Instance{
		PID:        s.pm.GetCurrentPID(),
		SessionID:  uuid.NewString(),
		SocketPath: s.config.SocketPath,
		AppVersion: s.config.AppVersion,
		StartedAt:  time.Now().Unix(),
	}
	if err := s.registry.Register(inst); err != nil {
		s.logger.Error("failed to register shield instance", zap.Error(err))
		return err
	}
	defer s.teardown()

	if err := s.store.Reconcile(); err != nil {
		s.logger.Warn("persisted snapshot unreadable, starting from in-memory state", zap.Error(err))
	}

	lis, err := s.listen()
	if err != nil {
		return fmt.Errorf("failed to open bridge: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.server.Serve(lis); err != nil {
			s.logger.Error("bridge server stopped", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		s.observe(ctx)
	}()

	s.logger.Info("shield daemon started",
		zap.Int("pid", inst.PID),
		zap.String("instance", inst.SessionID),
		zap.String("source", s.source.Name()),
		zap.Bool("shield_active", s.engine.ShieldActive()))

	heartbeatTicker := time.NewTicker(s.config.HeartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shield daemon stopping")
			s.server.StopWithin(s.config.ShutdownGrace)
			wg.Wait()
			return nil

		case now := <-heartbeatTicker.C:
			if err := s.registry.UpdateHeartbeat(now); err != nil {
				s.logger.Warn("failed to update heartbeat", zap.Error(err))
			}
		}
	}
}

// observe runs one observation session at a time through the engine. A lost
// session is replaced after ObserveRetry; the engine reports unavailable health
// in between.
func (s *Shield) observe(ctx context.Context) {
	for {
		session := monitor.Start(ctx, s.source, s.logger)
		s.mu.Lock()
		s.session = session
		s.mu.Unlock()

		err := s.engine.Run(ctx, session)
		session.End()
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, domain.ErrObservationUnavailable) {
			s.logger.Error("enforcement stopped", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.config.ObserveRetry):
			s.logger.Info("re-attaching foreground observation", zap.String("source", s.source.Name()))
		}
	}
}

// teardown turns the shield off in memory, removes any surface and releases
// the instance record. Persisted state is left for the next start.
func (s *Shield) teardown() {
	s.store.Reset()
	if err := s.intercept.Clear(); err != nil {
		s.logger.Warn("failed to clear intercept on shutdown", zap.Error(err))
	}
	if err := s.registry.Clear(); err != nil {
		s.logger.Warn("failed to clear instance record", zap.Error(err))
	}
	s.logger.Info("shield daemon stopped")
}
