// Package policy holds the category presets the controller expands into
// block-list identifiers. Each category (games, social, video) defines the
// identifiers it covers; the engine itself only ever sees exact identifiers.
package policy

// CategoryPrefix marks a block-list token that names a category preset.
const CategoryPrefix = "category:"

// Category defines a named group of identifiers to block together.
type Category interface {
	// ID returns unique identifier (e.g., "games", "social").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// Identifiers returns the exact identifiers the category covers.
	Identifiers() []string
}
