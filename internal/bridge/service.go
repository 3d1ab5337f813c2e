package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// TargetStore is the mutation side of the block list store.
type TargetStore interface {
	ReplaceTargets(ids []domain.Identifier)
	SetShieldActive(active bool)
}

// StatusReader is the query side of the enforcement engine.
type StatusReader interface {
	ShieldActive() bool
	Health() domain.Health
	Status() domain.Status
}

// ForegroundReporter accepts host-pushed foreground transitions.
// Implementation: monitor.Relay.
type ForegroundReporter interface {
	Push(ctx context.Context, id domain.Identifier, at time.Time) error
}

// Service executes bridge requests against the engine.
// Every mutation is committed before Handle returns; enforcement observes it
// on its next evaluation.
type Service struct {
	store     TargetStore
	engine    StatusReader
	snapshots domain.SnapshotStore
	presenter domain.SelectionPresenter
	reporter  ForegroundReporter
	logger    *zap.Logger
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithSnapshotStore persists mutations so activation refreshes and cold
// starts read what the controller last wrote.
func WithSnapshotStore(store domain.SnapshotStore) Option {
	return func(s *Service) { s.snapshots = store }
}

// WithSelectionPresenter sets the platform target picker.
func WithSelectionPresenter(p domain.SelectionPresenter) Option {
	return func(s *Service) { s.presenter = p }
}

// WithForegroundReporter routes ReportForeground requests to a relay source.
func WithForegroundReporter(r ForegroundReporter) Option {
	return func(s *Service) { s.reporter = r }
}

// NewService creates a bridge service.
func NewService(store TargetStore, engine StatusReader, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		engine: engine,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle executes one request. Failures are reported in the response, never
// as a panic or process exit.
func (s *Service) Handle(ctx context.Context, req Request) Response {
	switch r := req.(type) {
	case SetBlockList:
		return s.setBlockList(r)
	case SetShieldActive:
		return s.setShieldActive(r)
	case QueryShieldActive:
		active := s.engine.ShieldActive()
		return Response{ShieldActive: &active, Warning: s.healthWarning()}
	case RequestSelectionUI:
		return s.requestSelection(ctx)
	case QueryStatus:
		status := s.engine.Status()
		return Response{Status: &status, Warning: s.healthWarning()}
	case ReportForeground:
		return s.reportForeground(ctx, r)
	default:
		return Response{Error: &Error{
			Code:    CodeInvalidRequest,
			Message: fmt.Sprintf("unsupported request type %T", req),
		}}
	}
}

func (s *Service) setBlockList(r SetBlockList) Response {
	ids := domain.Identifiers(r.Identifiers)

	var resp Response
	if s.snapshots != nil {
		if err := s.snapshots.SaveTargets(ids); err != nil {
			s.logger.Warn("failed to persist block list", zap.Error(err))
			resp.Warning = &Error{Code: CodeInternal, Message: "block list not persisted: " + err.Error()}
		}
	}

	s.store.ReplaceTargets(ids)
	return resp
}

func (s *Service) setShieldActive(r SetShieldActive) Response {
	var resp Response
	if s.snapshots != nil {
		if err := s.snapshots.SaveShieldActive(r.Active); err != nil {
			s.logger.Warn("failed to persist shield flag", zap.Error(err))
			resp.Warning = &Error{Code: CodeInternal, Message: "shield flag not persisted: " + err.Error()}
		}
	}

	s.store.SetShieldActive(r.Active)
	active := s.engine.ShieldActive()
	resp.ShieldActive = &active
	if resp.Warning == nil {
		resp.Warning = s.healthWarning()
	}
	return resp
}

func (s *Service) requestSelection(ctx context.Context) Response {
	if s.presenter == nil {
		return Response{Error: errorFrom(domain.ErrNoHostContext)}
	}

	blob, err := s.presenter.PresentSelection(ctx)
	if err != nil {
		s.logger.Info("selection UI returned no selection", zap.Error(err))
		return Response{Error: errorFrom(err)}
	}
	if err := validateSelection(blob); err != nil {
		s.logger.Warn("rejected selection", zap.Error(err))
		return Response{Error: errorFrom(err)}
	}

	return Response{Selection: blob}
}

// validateSelection checks the blob is well formed without altering it.
func validateSelection(blob string) error {
	if strings.TrimSpace(blob) == "" {
		return fmt.Errorf("%w: empty selection", domain.ErrInvalidSelection)
	}
	if !json.Valid([]byte(blob)) {
		return fmt.Errorf("%w: selection is not valid JSON", domain.ErrInvalidSelection)
	}
	return nil
}

func (s *Service) reportForeground(ctx context.Context, r ReportForeground) Response {
	if s.reporter == nil {
		return Response{Error: errorFrom(
			fmt.Errorf("%w: host reporting not enabled", domain.ErrObservationUnavailable))}
	}

	if err := s.reporter.Push(ctx, domain.Identifier(r.Identifier), r.Timestamp); err != nil {
		return Response{Error: errorFrom(err)}
	}
	return Response{Warning: s.healthWarning()}
}

// healthWarning surfaces non-OK engine health on every read.
func (s *Service) healthWarning() *Error {
	switch s.engine.Health() {
	case domain.HealthUnavailable:
		return &Error{Code: CodeObservationUnavailable, Message: "foreground observation unavailable, cannot enforce"}
	case domain.HealthDegraded:
		return &Error{Code: CodeDegradedEnforcement, Message: "cover surface unavailable, navigation-away only"}
	default:
		return nil
	}
}
