package domain

import "errors"

var (
	// ErrObservationUnavailable means foreground changes can no longer be observed.
	// Fatal to enforcement, surfaced to the controller, never a crash.
	ErrObservationUnavailable = errors.New("foreground observation unavailable")

	// ErrDegradedEnforcement means the cover surface could not be raised and
	// navigation-away was used alone. Recoverable.
	ErrDegradedEnforcement = errors.New("degraded enforcement: cover surface unavailable")

	// ErrInvalidSelection means the selection UI returned a malformed blob.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrSelectionCancelled means the user dismissed the selection UI.
	ErrSelectionCancelled = errors.New("selection cancelled")

	// ErrNoHostContext means there is no place to present UI.
	ErrNoHostContext = errors.New("no host context to present UI")

	// ErrAlreadyRunning means another shield instance owns this host.
	ErrAlreadyRunning = errors.New("shield instance already running")
)
