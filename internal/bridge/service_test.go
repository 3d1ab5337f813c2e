package bridge

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

func newTestService(opts ...Option) (*Service, *mockStore, *mockEngine) {
	store := &mockStore{}
	engine := &mockEngine{store: store}
	return NewService(store, engine, zap.NewNop(), opts...), store, engine
}

func TestService_SetBlockList(t *testing.T) {
	snaps := &mockSnapshots{}
	svc, store, _ := newTestService(WithSnapshotStore(snaps))

	resp := svc.Handle(context.Background(), SetBlockList{Identifiers: []string{"com.app.games", "com.app.social"}})

	require.NoError(t, resp.Err())
	assert.Nil(t, resp.Warning)
	want := []domain.Identifier{"com.app.games", "com.app.social"}
	assert.Equal(t, want, store.targets)
	assert.Equal(t, want, snaps.targets, "block list is persisted before it is applied")
}

func TestService_SetBlockListEmpty(t *testing.T) {
	svc, store, _ := newTestService()
	store.targets = []domain.Identifier{"com.app.games"}

	resp := svc.Handle(context.Background(), SetBlockList{})

	require.NoError(t, resp.Err())
	assert.Empty(t, store.targets)
}

func TestService_SetBlockListPersistFailure(t *testing.T) {
	svc, store, _ := newTestService(WithSnapshotStore(&mockSnapshots{err: errors.New("disk full")}))

	resp := svc.Handle(context.Background(), SetBlockList{Identifiers: []string{"com.app.games"}})

	require.NoError(t, resp.Err(), "in-memory list is still applied")
	require.NotNil(t, resp.Warning)
	assert.Equal(t, CodeInternal, resp.Warning.Code)
	assert.Equal(t, []domain.Identifier{"com.app.games"}, store.targets)
}

func TestService_SetShieldActive(t *testing.T) {
	snaps := &mockSnapshots{}
	svc, store, _ := newTestService(WithSnapshotStore(snaps))

	resp := svc.Handle(context.Background(), SetShieldActive{Active: true})

	require.NoError(t, resp.Err())
	require.NotNil(t, resp.ShieldActive)
	assert.True(t, *resp.ShieldActive)
	assert.True(t, store.active)
	require.NotNil(t, snaps.active)
	assert.True(t, *snaps.active)

	resp = svc.Handle(context.Background(), QueryShieldActive{})
	require.NotNil(t, resp.ShieldActive)
	assert.True(t, *resp.ShieldActive, "query observes the committed mutation")
}

func TestService_HealthWarnings(t *testing.T) {
	tests := []struct {
		name   string
		health domain.Health
		want   string
	}{
		{name: "ok", health: domain.HealthOK, want: ""},
		{name: "degraded", health: domain.HealthDegraded, want: CodeDegradedEnforcement},
		{name: "unavailable", health: domain.HealthUnavailable, want: CodeObservationUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, engine := newTestService()
			engine.health = tt.health

			resp := svc.Handle(context.Background(), QueryShieldActive{})

			require.NoError(t, resp.Err())
			if tt.want == "" {
				assert.Nil(t, resp.Warning)
				return
			}
			require.NotNil(t, resp.Warning)
			assert.Equal(t, tt.want, resp.Warning.Code)
		})
	}
}

func TestService_RequestSelectionUI(t *testing.T) {
	tests := []struct {
		name      string
		presenter domain.SelectionPresenter
		wantBlob  string
		wantCode  string
	}{
		{
			name:      "valid selection returned unmodified",
			presenter: &mockPresenter{blob: `{"apps": ["opaque-token"]}`},
			wantBlob:  `{"apps": ["opaque-token"]}`,
		},
		{
			name:      "empty selection",
			presenter: &mockPresenter{blob: "  "},
			wantCode:  CodeInvalidSelection,
		},
		{
			name:      "malformed selection",
			presenter: &mockPresenter{blob: "{not json"},
			wantCode:  CodeInvalidSelection,
		},
		{
			name:      "user cancelled",
			presenter: &mockPresenter{err: domain.ErrSelectionCancelled},
			wantCode:  CodeSelectionCancelled,
		},
		{
			name:      "host reports no context",
			presenter: &mockPresenter{err: domain.ErrNoHostContext},
			wantCode:  CodeNoHostContext,
		},
		{
			name:      "no presenter configured",
			presenter: nil,
			wantCode:  CodeNoHostContext,
		},
		{
			name:      "unexpected failure",
			presenter: &mockPresenter{err: errors.New("picker crashed")},
			wantCode:  CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.presenter != nil {
				opts = append(opts, WithSelectionPresenter(tt.presenter))
			}
			svc, _, _ := newTestService(opts...)

			resp := svc.Handle(context.Background(), RequestSelectionUI{})

			if tt.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.wantCode, resp.Error.Code)
				assert.Empty(t, resp.Selection)
				return
			}
			require.NoError(t, resp.Err())
			assert.Equal(t, tt.wantBlob, resp.Selection)
		})
	}
}

func TestService_QueryStatus(t *testing.T) {
	svc, store, _ := newTestService()
	store.active = true
	store.targets = []domain.Identifier{"com.app.games"}

	resp := svc.Handle(context.Background(), QueryStatus{})

	require.NoError(t, resp.Err())
	require.NotNil(t, resp.Status)
	assert.True(t, resp.Status.ShieldActive)
	assert.Equal(t, []domain.Identifier{"com.app.games"}, resp.Status.Targets)
}

func TestService_ReportForeground(t *testing.T) {
	t.Run("forwards to reporter", func(t *testing.T) {
		reporter := &mockReporter{}
		svc, _, _ := newTestService(WithForegroundReporter(reporter))
		at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

		resp := svc.Handle(context.Background(), ReportForeground{Identifier: "com.app.games", Timestamp: at})

		require.NoError(t, resp.Err())
		assert.Equal(t, domain.Identifier("com.app.games"), reporter.id)
		assert.Equal(t, at, reporter.at)
	})

	t.Run("no reporter", func(t *testing.T) {
		svc, _, _ := newTestService()

		resp := svc.Handle(context.Background(), ReportForeground{Identifier: "com.app.games"})

		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeObservationUnavailable, resp.Error.Code)
		assert.ErrorIs(t, resp.Err(), domain.ErrObservationUnavailable)
	})

	t.Run("reporter detached", func(t *testing.T) {
		reporter := &mockReporter{err: domain.ErrObservationUnavailable}
		svc, _, _ := newTestService(WithForegroundReporter(reporter))

		resp := svc.Handle(context.Background(), ReportForeground{Identifier: "com.app.games"})

		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeObservationUnavailable, resp.Error.Code)
	})
}

func TestService_UnknownRequest(t *testing.T) {
	svc, store, _ := newTestService()

	resp := svc.Handle(context.Background(), unknownRequest{})

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	assert.Empty(t, store.calls, "unknown requests never mutate state")
}

func TestError_UnwrapsToDomainSentinel(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{CodeObservationUnavailable, domain.ErrObservationUnavailable},
		{CodeDegradedEnforcement, domain.ErrDegradedEnforcement},
		{CodeInvalidSelection, domain.ErrInvalidSelection},
		{CodeSelectionCancelled, domain.ErrSelectionCancelled},
		{CodeNoHostContext, domain.ErrNoHostContext},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := &Error{Code: tt.code, Message: "x"}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.NoError(t, (&Error{Code: CodeInternal}).Unwrap())
}
