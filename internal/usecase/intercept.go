package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// DefaultNotice is the static block notice shown on the cover surface.
const DefaultNotice = "SYSTEM_FOCUS_ACTIVE\n\nACCESS_DENIED"

// InterceptAction owns the single intercept surface of the process.
// States: Idle (no surface) and Covered (surface up for one identifier).
type InterceptAction struct {
	mu        sync.Mutex
	surface   domain.CoverSurface
	navigator domain.Navigator
	notice    string
	state     domain.InterceptState
	now       func() time.Time
	logger    *zap.Logger
}

// NewInterceptAction creates an idle intercept action.
// An empty notice selects DefaultNotice.
func NewInterceptAction(
	surface domain.CoverSurface,
	navigator domain.Navigator,
	notice string,
	logger *zap.Logger,
) *InterceptAction {
	if notice == "" {
		notice = DefaultNotice
	}
	return &InterceptAction{
		surface:   surface,
		navigator: navigator,
		notice:    notice,
		now:       time.Now,
		logger:    logger,
	}
}

// Raise covers id and navigates away from it.
// Raising the identifier already covered is a no-op. Raising a different one
// tears the old surface down first; two surfaces never coexist.
// If the surface cannot be shown, navigation-away is used alone and the
// returned error wraps domain.ErrDegradedEnforcement. Raising a degraded
// identifier again retries the surface under the same intercept.
func (a *InterceptAction) Raise(ctx context.Context, id domain.Identifier) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Covered(id) {
		return nil
	}

	if a.state.SurfaceActive {
		a.logger.Info("replacing intercept surface",
			zap.String("old", string(a.state.BlockedIdentifier)),
			zap.String("new", string(id)))
		a.hideLocked()
	}

	interceptID, raisedAt := uuid.NewString(), a.now()
	if a.state.Degraded && a.state.BlockedIdentifier == id {
		interceptID, raisedAt = a.state.InterceptID, a.state.RaisedAt
	}

	var surfaceErr error
	if a.surface == nil {
		surfaceErr = errors.New("no cover surface configured")
	} else {
		surfaceErr = a.surface.Show(ctx, id, a.notice)
	}

	a.state = domain.InterceptState{
		SurfaceActive:     surfaceErr == nil,
		BlockedIdentifier: id,
		Degraded:          surfaceErr != nil,
		InterceptID:       interceptID,
		RaisedAt:          raisedAt,
	}

	// Navigate even when covered: the surface may be dismissable by gesture.
	var navErr error
	if a.navigator != nil {
		navErr = a.navigator.NavigateAway(ctx, id)
	}

	switch {
	case surfaceErr == nil && navErr == nil:
		a.logger.Info("intercept raised",
			zap.String("identifier", string(id)),
			zap.String("intercept_id", a.state.InterceptID))
		return nil

	case surfaceErr == nil:
		a.logger.Warn("navigation away failed, surface still covering",
			zap.String("identifier", string(id)),
			zap.Error(navErr))
		return nil

	case navErr == nil:
		a.logger.Warn("cover surface unavailable, navigated away only",
			zap.String("identifier", string(id)),
			zap.Error(surfaceErr))
		return fmt.Errorf("%w: %v", domain.ErrDegradedEnforcement, surfaceErr)

	default:
		a.logger.Error("intercept failed: no surface and navigation failed",
			zap.String("identifier", string(id)),
			zap.NamedError("surface_error", surfaceErr),
			zap.NamedError("navigation_error", navErr))
		return errors.Join(
			fmt.Errorf("%w: %v", domain.ErrDegradedEnforcement, surfaceErr),
			fmt.Errorf("navigate away from %q: %w", id, navErr),
		)
	}
}

// Clear returns to Idle, tearing down any surface.
func (a *InterceptAction) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.state.SurfaceActive && a.state.BlockedIdentifier == "" {
		return nil
	}

	err := a.hideLocked()
	a.logger.Info("intercept cleared")
	return err
}

// hideLocked tears the surface down and resets state. Must be called with mu held.
func (a *InterceptAction) hideLocked() error {
	var err error
	if a.state.SurfaceActive && a.surface != nil {
		if err = a.surface.Hide(); err != nil {
			a.logger.Warn("failed to hide cover surface",
				zap.String("identifier", string(a.state.BlockedIdentifier)),
				zap.Error(err))
		}
	}
	a.state = domain.InterceptState{}
	return err
}

// State returns the current intercept state.
func (a *InterceptAction) State() domain.InterceptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}
