// Package usecase contains application business logic.
package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// EventStream is the lazy sequence of foreground events consumed by Run.
// Implementation: monitor.Session.
type EventStream interface {
	Next(ctx context.Context) (domain.ForegroundEvent, error)
}

// EnforcementEngine decides ALLOW/BLOCK for each foreground event.
// It keeps no state of its own beyond health bookkeeping: every decision reads
// one atomic view of the store. Exactly one engine exists per process; it is
// constructed once and handed to whatever registers as the event sink.
type EnforcementEngine struct {
	evalMu    sync.Mutex // One event is evaluated to completion before the next
	store     *BlockListStore
	intercept *InterceptAction
	logger    *zap.Logger

	statusMu       sync.Mutex
	degraded       bool
	observationErr error
	warnings       []string
	events         uint64
	blocks         uint64
}

// NewEnforcementEngine wires the engine to its store and intercept action and
// registers the deactivation hook on the store.
func NewEnforcementEngine(store *BlockListStore, intercept *InterceptAction, logger *zap.Logger) *EnforcementEngine {
	e := &EnforcementEngine{
		store:     store,
		intercept: intercept,
		logger:    logger,
	}
	store.OnDeactivate(e.clearOnDeactivate)
	return e
}

// Evaluate processes one event synchronously.
// Returned errors are enforcement warnings (e.g. domain.ErrDegradedEnforcement);
// the decision is BLOCK regardless once the identifier matched.
func (e *EnforcementEngine) Evaluate(ctx context.Context, ev domain.ForegroundEvent) (domain.Decision, error) {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	view := e.store.View()
	e.count(&e.events)

	if !view.ShieldActive() {
		return domain.DecisionAllow, nil
	}
	if !view.Contains(ev.Identifier) {
		return domain.DecisionAllow, nil
	}

	e.count(&e.blocks)
	e.logger.Debug("blocked foreground transition",
		zap.String("identifier", string(ev.Identifier)),
		zap.String("source", ev.Source),
		zap.Time("observed_at", ev.Timestamp))

	err := e.intercept.Raise(ctx, ev.Identifier)
	e.recordRaise(err)
	return domain.DecisionBlock, err
}

// Run consumes events until the stream ends or ctx is done.
// An observation failure is recorded, logged and returned; it never panics.
// A recorded failure is cleared only once the new session delivers an event.
func (e *EnforcementEngine) Run(ctx context.Context, stream EventStream) error {
	observing := false

	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrObservationUnavailable) {
				e.setObservation(err)
				e.logger.Error("foreground observation lost, cannot enforce",
					zap.Bool("shield_active", e.store.View().ShieldActive()),
					zap.Error(err))
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			e.logger.Info("observation session ended", zap.Error(err))
			return nil
		}
		if !observing {
			observing = true
			e.clearObservation()
		}

		decision, err := e.Evaluate(ctx, ev)
		if err != nil {
			e.logger.Warn("enforcement warning",
				zap.String("identifier", string(ev.Identifier)),
				zap.String("decision", decision.String()),
				zap.Error(err))
		}
	}
}

// clearOnDeactivate waits for any in-flight evaluation, then clears the surface.
func (e *EnforcementEngine) clearOnDeactivate() {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	if err := e.intercept.Clear(); err != nil {
		e.logger.Warn("failed to clear intercept on deactivation", zap.Error(err))
	}
	e.statusMu.Lock()
	e.degraded = false
	e.statusMu.Unlock()
}

func (e *EnforcementEngine) count(counter *uint64) {
	e.statusMu.Lock()
	*counter++
	e.statusMu.Unlock()
}

func (e *EnforcementEngine) recordRaise(err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	if err == nil {
		e.degraded = false
		return
	}
	if errors.Is(err, domain.ErrDegradedEnforcement) {
		e.degraded = true
	}
	e.appendWarningLocked(err.Error())
}

func (e *EnforcementEngine) setObservation(err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.observationErr = err
	if err != nil {
		e.appendWarningLocked(err.Error())
	}
}

func (e *EnforcementEngine) clearObservation() {
	e.statusMu.Lock()
	recovered := e.observationErr != nil
	e.observationErr = nil
	e.statusMu.Unlock()

	if recovered {
		e.logger.Info("foreground observation restored")
	}
}

const maxWarnings = 16

func (e *EnforcementEngine) appendWarningLocked(msg string) {
	e.warnings = append(e.warnings, msg)
	if len(e.warnings) > maxWarnings {
		e.warnings = e.warnings[len(e.warnings)-maxWarnings:]
	}
}

// ObservationErr returns the terminal observation error, if any.
func (e *EnforcementEngine) ObservationErr() error {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.observationErr
}

// Health reports whether the engine can currently enforce.
func (e *EnforcementEngine) Health() domain.Health {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.healthLocked()
}

func (e *EnforcementEngine) healthLocked() domain.Health {
	switch {
	case e.observationErr != nil:
		return domain.HealthUnavailable
	case e.degraded:
		return domain.HealthDegraded
	default:
		return domain.HealthOK
	}
}

// ShieldActive reports the current shield flag.
func (e *EnforcementEngine) ShieldActive() bool {
	return e.store.View().ShieldActive()
}

// Status returns the controller-facing read model.
func (e *EnforcementEngine) Status() domain.Status {
	view := e.store.View()
	intercept := e.intercept.State()

	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	return domain.Status{
		ShieldActive: view.ShieldActive(),
		Targets:      view.Targets(),
		Intercept:    intercept,
		Health:       e.healthLocked(),
		Warnings:     append([]string(nil), e.warnings...),
		Events:       e.events,
		Blocks:       e.blocks,
		CheckedAt:    time.Now(),
	}
}
