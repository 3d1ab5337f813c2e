package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// RelaySourceName labels events pushed through the bridge.
const RelaySourceName = "relay"

// Relay is a ForegroundSource fed by the platform host through the bridge.
// At most one session is attached at a time.
type Relay struct {
	mu      sync.Mutex
	sink    domain.ForegroundSink
	revoked chan error
}

// NewRelay creates a detached relay.
func NewRelay() *Relay {
	return &Relay{}
}

// Name implements domain.ForegroundSource.
func (r *Relay) Name() string {
	return RelaySourceName
}

// Observe attaches sink and blocks until ctx is done or the capability is revoked.
func (r *Relay) Observe(ctx context.Context, sink domain.ForegroundSink) error {
	revoked := make(chan error, 1)

	r.mu.Lock()
	if r.sink != nil {
		r.mu.Unlock()
		return errors.New("relay already attached to a session")
	}
	r.sink = sink
	r.revoked = revoked
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.sink = nil
		r.revoked = nil
		r.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-revoked:
		return err
	}
}

// Push forwards one transition reported by the host. It returns an error
// wrapping domain.ErrObservationUnavailable when no session is attached.
func (r *Relay) Push(ctx context.Context, id domain.Identifier, at time.Time) error {
	r.mu.Lock()
	sink := r.sink
	r.mu.Unlock()

	if sink == nil {
		return fmt.Errorf("%w: no observation session attached", domain.ErrObservationUnavailable)
	}
	if at.IsZero() {
		at = time.Now()
	}

	return sink.Notify(ctx, domain.ForegroundEvent{
		Identifier: id,
		Timestamp:  at,
		Source:     RelaySourceName,
	})
}

// Revoke ends the attached session with a terminal observation failure, as
// when the host withdraws the observation permission.
func (r *Relay) Revoke(cause error) {
	if cause == nil {
		cause = errors.New("observation permission revoked")
	}

	r.mu.Lock()
	revoked := r.revoked
	r.mu.Unlock()

	if revoked == nil {
		return
	}
	select {
	case revoked <- cause:
	default:
	}
}

// Attached reports whether a session is currently attached.
func (r *Relay) Attached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sink != nil
}

var _ domain.ForegroundSource = (*Relay)(nil)
