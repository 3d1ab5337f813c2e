package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

func waitAttached(t *testing.T, r *Relay) {
	t.Helper()
	require.Eventually(t, r.Attached, time.Second, 5*time.Millisecond)
}

func TestRelay_PushWithoutSession(t *testing.T) {
	r := NewRelay()

	err := r.Push(context.Background(), "com.app.games", time.Now())

	assert.ErrorIs(t, err, domain.ErrObservationUnavailable)
}

func TestRelay_PushReachesSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRelay()
	s := Start(ctx, r, zap.NewNop())
	waitAttached(t, r)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	go func() { _ = r.Push(ctx, "com.app.games", at) }()

	got, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Identifier("com.app.games"), got.Identifier)
	assert.Equal(t, at, got.Timestamp)
	assert.Equal(t, RelaySourceName, got.Source)
}

func TestRelay_RevokeFailsSession(t *testing.T) {
	r := NewRelay()
	s := Start(context.Background(), r, zap.NewNop())
	waitAttached(t, r)

	r.Revoke(errors.New("accessibility service disabled"))

	_, err := s.Next(context.Background())
	assert.ErrorIs(t, err, domain.ErrObservationUnavailable)

	require.Eventually(t, func() bool { return !r.Attached() }, time.Second, 5*time.Millisecond)
	err = r.Push(context.Background(), "x", time.Time{})
	assert.ErrorIs(t, err, domain.ErrObservationUnavailable, "pushes after revocation surface the status")
}

func TestRelay_SingleAttachment(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRelay()
	_ = Start(ctx, r, zap.NewNop())
	waitAttached(t, r)

	err := r.Observe(ctx, NewSession("second"))
	assert.Error(t, err)
}

func TestRelay_RevokeDetachedIsNoop(t *testing.T) {
	r := NewRelay()
	assert.NotPanics(t, func() { r.Revoke(nil) })
}
