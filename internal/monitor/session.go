// Package monitor turns host foreground notifications into an observation
// session the enforcement engine can consume.
//
// Delivery is push-based: a host adapter (domain.ForegroundSource) calls
// Session.Notify whenever the foreground context changes. A session is a live,
// infinite sequence until it ends; it cannot be restarted.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// ErrSessionEnded is returned once a session has ended normally.
var ErrSessionEnded = errors.New("observation session ended")

// Session is one observation session.
// Notify hands events over unbuffered, so a producer waits until the consumer
// has taken the previous event.
type Session struct {
	id     string
	source string
	events chan domain.ForegroundEvent
	done   chan struct{}

	mu   sync.Mutex
	err  error
	once sync.Once
}

// NewSession creates an open session labelled with the source name.
func NewSession(source string) *Session {
	return &Session{
		id:     uuid.NewString(),
		source: source,
		events: make(chan domain.ForegroundEvent),
		done:   make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Notify delivers one foreground transition. Events are never deduplicated.
func (s *Session) Notify(ctx context.Context, ev domain.ForegroundEvent) error {
	if ev.Source == "" {
		ev.Source = s.source
	}

	// Fail fast once ended, even if a receiver happens to be waiting.
	select {
	case <-s.done:
		return s.endErr()
	default:
	}

	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return s.endErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next event. After the session ends it returns
// ErrSessionEnded, or an error wrapping domain.ErrObservationUnavailable if
// the session failed.
func (s *Session) Next(ctx context.Context) (domain.ForegroundEvent, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.done:
		return domain.ForegroundEvent{}, s.endErr()
	case <-ctx.Done():
		return domain.ForegroundEvent{}, ctx.Err()
	}
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error, or nil while the session is open or after a
// normal end.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// End closes the session normally.
func (s *Session) End() {
	s.finish(nil)
}

// Fail ends the session with a terminal observation failure.
func (s *Session) Fail(cause error) {
	if cause == nil {
		cause = errors.New("observation stopped")
	}
	if !errors.Is(cause, domain.ErrObservationUnavailable) {
		cause = fmt.Errorf("%w: %v", domain.ErrObservationUnavailable, cause)
	}
	s.finish(cause)
}

func (s *Session) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *Session) endErr() error {
	if err := s.Err(); err != nil {
		return err
	}
	return ErrSessionEnded
}

// Start opens a session and runs source.Observe in the background.
// When Observe returns nil (ctx done) the session ends normally; any other
// return value fails it with domain.ErrObservationUnavailable.
func Start(ctx context.Context, source domain.ForegroundSource, logger *zap.Logger) *Session {
	s := NewSession(source.Name())

	logger.Info("observation session started",
		zap.String("session_id", s.id),
		zap.String("source", source.Name()))

	go func() {
		err := source.Observe(ctx, s)
		if err != nil && ctx.Err() == nil {
			s.Fail(err)
			logger.Error("observation session failed",
				zap.String("session_id", s.id),
				zap.String("source", source.Name()),
				zap.Error(err))
			return
		}
		s.End()
		logger.Info("observation session ended",
			zap.String("session_id", s.id),
			zap.String("source", source.Name()))
	}()

	return s
}
