package policy

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds all category presets.
type Registry struct {
	categories map[string]Category
}

// NewRegistry creates a registry with all default categories.
func NewRegistry() *Registry {
	r := &Registry{
		categories: make(map[string]Category),
	}

	r.Register(NewGamesCategory())
	r.Register(NewSocialCategory())
	r.Register(NewVideoCategory())

	return r
}

// NewRegistryWithCategories creates a registry with custom categories (for testing).
func NewRegistryWithCategories(categories ...Category) *Registry {
	r := &Registry{
		categories: make(map[string]Category),
	}
	for _, c := range categories {
		r.Register(c)
	}
	return r
}

// Register adds a category to the registry.
func (r *Registry) Register(c Category) {
	r.categories[c.ID()] = c
}

// Get returns a category by ID.
func (r *Registry) Get(id string) (Category, bool) {
	c, ok := r.categories[id]
	return c, ok
}

// GetAll returns all registered categories ordered by ID.
func (r *Registry) GetAll() []Category {
	result := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// List returns all category IDs, sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.categories))
	for id := range r.categories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Expand replaces every "category:<id>" token with the category's identifiers.
// Other tokens pass through verbatim. Order of first appearance is kept and
// repeats are dropped.
func (r *Registry) Expand(tokens []string) ([]string, error) {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	for _, tok := range tokens {
		id, isCategory := strings.CutPrefix(tok, CategoryPrefix)
		if !isCategory {
			add(tok)
			continue
		}
		c, ok := r.Get(id)
		if !ok {
			return nil, fmt.Errorf("unknown category: %s (available: %s)", id, strings.Join(r.List(), ", "))
		}
		for _, member := range c.Identifiers() {
			add(member)
		}
	}
	return out, nil
}
