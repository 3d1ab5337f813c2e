// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Identifier names a blockable unit: an application id, a category tag or a domain.
// Equality is exact string match. No normalization is performed.
type Identifier string

// Identifiers converts raw strings to identifiers, preserving order and duplicates.
func Identifiers(raw []string) []Identifier {
	ids := make([]Identifier, len(raw))
	for i, s := range raw {
		ids[i] = Identifier(s)
	}
	return ids
}

// Strings converts identifiers back to plain strings.
func Strings(ids []Identifier) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// ForegroundEvent is emitted once per observed foreground transition.
// Events are not deduplicated; the same identifier may arrive more than once.
type ForegroundEvent struct {
	Identifier Identifier
	Timestamp  time.Time
	Source     string // Host adapter that observed the transition (e.g. "relay", "process")
}

// Decision is the engine verdict for a single foreground event.
type Decision int

const (
	DecisionAllow Decision = iota
	DecisionBlock
)

func (d Decision) String() string {
	switch d {
	case DecisionBlock:
		return "BLOCK"
	default:
		return "ALLOW"
	}
}

// InterceptState describes the single intercept surface owned by the process.
// SurfaceActive implies BlockedIdentifier is set and the shield was active when raised.
type InterceptState struct {
	SurfaceActive     bool       `json:"surface_active"`
	BlockedIdentifier Identifier `json:"blocked_identifier,omitempty"`
	Degraded          bool       `json:"degraded"` // Last raise fell back to navigation-away only
	InterceptID       string     `json:"intercept_id,omitempty"`
	RaisedAt          time.Time  `json:"raised_at,omitempty"`
}

// Covered reports whether a surface is up for the given identifier.
func (s InterceptState) Covered(id Identifier) bool {
	return s.SurfaceActive && s.BlockedIdentifier == id
}

// Snapshot is the persisted block-list/flag pair written by the controller.
// HasTargets is false when only the flag has been written.
type Snapshot struct {
	Targets      []Identifier
	HasTargets   bool
	ShieldActive bool
}

// Health summarizes whether the engine can currently enforce.
type Health string

const (
	HealthOK          Health = "ok"
	HealthDegraded    Health = "degraded"    // Cover surface unavailable, navigation-away only
	HealthUnavailable Health = "unavailable" // Foreground observation lost
)

// Status is the read model returned to the controller.
type Status struct {
	ShieldActive bool           `json:"shield_active"`
	Targets      []Identifier   `json:"targets"`
	Intercept    InterceptState `json:"intercept"`
	Health       Health         `json:"health"`
	Warnings     []string       `json:"warnings,omitempty"`
	Events       uint64         `json:"events"`
	Blocks       uint64         `json:"blocks"`
	CheckedAt    time.Time      `json:"checked_at"`
}

// Instance records the running shield daemon for single-instance enforcement
// and discovery by the controller.
type Instance struct {
	PID           int    `json:"pid"`
	SessionID     string `json:"session_id"`
	SocketPath    string `json:"socket_path"`
	AppVersion    string `json:"app_version,omitempty"`
	Mode          string `json:"mode,omitempty"` // "user" or "system"
	StartedAt     int64  `json:"started_at"`
	LastHeartbeat int64  `json:"last_heartbeat"`
}
