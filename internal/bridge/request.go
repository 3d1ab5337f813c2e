// Package bridge is the request/response contract between the controller
// (CLI, settings UI, platform host) and the shield engine.
//
// Requests form a closed set: every variant implements the unexported
// isRequest marker, so no type outside this package can become a request.
package bridge

import (
	"errors"
	"time"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// Request is one bridge operation.
type Request interface {
	isRequest()
}

// SetBlockList replaces the full block list.
type SetBlockList struct {
	Identifiers []string `json:"identifiers"`
}

// SetShieldActive turns the shield on or off.
type SetShieldActive struct {
	Active bool `json:"active"`
}

// QueryShieldActive asks for the current shield flag.
type QueryShieldActive struct{}

// RequestSelectionUI asks the platform collaborator to present its target picker.
type RequestSelectionUI struct{}

// QueryStatus asks for the full engine status.
type QueryStatus struct{}

// ReportForeground is pushed by the platform host when the foreground changes.
type ReportForeground struct {
	Identifier string    `json:"identifier"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

func (SetBlockList) isRequest()       {}
func (SetShieldActive) isRequest()    {}
func (QueryShieldActive) isRequest()  {}
func (RequestSelectionUI) isRequest() {}
func (QueryStatus) isRequest()        {}
func (ReportForeground) isRequest()   {}

// Error codes returned to the controller.
const (
	CodeObservationUnavailable = "OBSERVATION_UNAVAILABLE"
	CodeDegradedEnforcement    = "DEGRADED_ENFORCEMENT"
	CodeInvalidSelection       = "INVALID_SELECTION"
	CodeSelectionCancelled     = "SELECTION_CANCELLED"
	CodeNoHostContext          = "NO_HOST_CONTEXT"
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeInternal               = "INTERNAL"
)

// Error is a failure reported to the controller.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Unwrap maps the code back to the domain sentinel so callers can use errors.Is.
func (e *Error) Unwrap() error {
	switch e.Code {
	case CodeObservationUnavailable:
		return domain.ErrObservationUnavailable
	case CodeDegradedEnforcement:
		return domain.ErrDegradedEnforcement
	case CodeInvalidSelection:
		return domain.ErrInvalidSelection
	case CodeSelectionCancelled:
		return domain.ErrSelectionCancelled
	case CodeNoHostContext:
		return domain.ErrNoHostContext
	default:
		return nil
	}
}

// errorFrom classifies err into a bridge error.
func errorFrom(err error) *Error {
	code := CodeInternal
	switch {
	case errors.Is(err, domain.ErrObservationUnavailable):
		code = CodeObservationUnavailable
	case errors.Is(err, domain.ErrDegradedEnforcement):
		code = CodeDegradedEnforcement
	case errors.Is(err, domain.ErrInvalidSelection):
		code = CodeInvalidSelection
	case errors.Is(err, domain.ErrSelectionCancelled):
		code = CodeSelectionCancelled
	case errors.Is(err, domain.ErrNoHostContext):
		code = CodeNoHostContext
	}
	return &Error{Code: code, Message: err.Error()}
}

// Response is the result of one request. Only the fields relevant to the
// request are set.
type Response struct {
	RequestID    string         `json:"request_id,omitempty"`
	ShieldActive *bool          `json:"shield_active,omitempty"`
	Selection    string         `json:"selection,omitempty"`
	Status       *domain.Status `json:"status,omitempty"`
	Warning      *Error         `json:"warning,omitempty"` // Non-fatal condition, e.g. degraded enforcement
	Error        *Error         `json:"error,omitempty"`
}

// Err returns the response error as a Go error, or nil.
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}
