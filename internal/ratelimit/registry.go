package ratelimit

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownTier is returned for a mode name that has no configured tier.
var ErrUnknownTier = errors.New("unknown mode")

// Registry owns one Limiter per tier. It is built once at startup and passed
// to every component that issues quota-consuming requests.
type Registry struct {
	tiers    []Tier
	limiters map[string]*Limiter
	fallback string
}

// NewRegistry creates limiters for tiers. defaultTier names the tier used
// when a caller does not pick one; it must be among tiers.
func NewRegistry(tiers []Tier, defaultTier string, opts ...Option) (*Registry, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("at least one tier must be configured")
	}
	r := &Registry{
		tiers:    append([]Tier(nil), tiers...),
		limiters: make(map[string]*Limiter, len(tiers)),
		fallback: defaultTier,
	}
	sort.SliceStable(r.tiers, func(i, j int) bool { return r.tiers[i].CostPerPage < r.tiers[j].CostPerPage })

	for _, t := range r.tiers {
		if _, dup := r.limiters[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tier %q", t.Name)
		}
		l := NewLimiter(t, opts...)
		l.alternatives = r.alternativesFor
		r.limiters[t.Name] = l
	}
	if r.fallback == "" {
		r.fallback = r.tiers[0].Name
	}
	if _, ok := r.limiters[r.fallback]; !ok {
		return nil, fmt.Errorf("%w: default tier %q is not configured", ErrUnknownTier, r.fallback)
	}
	return r, nil
}

// Limiter returns the limiter for name, or the default tier's limiter when
// name is empty.
func (r *Registry) Limiter(name string) (*Limiter, error) {
	if name == "" {
		name = r.fallback
	}
	l, ok := r.limiters[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTier, name)
	}
	return l, nil
}

// Tiers returns the configured tiers ordered from cheapest to most expensive.
func (r *Registry) Tiers() []Tier {
	return append([]Tier(nil), r.tiers...)
}

// Default returns the name of the default tier.
func (r *Registry) Default() string { return r.fallback }

// alternativesFor lists cheaper tiers that still have daily capacity. It is
// called without the exhausted limiter's lock held.
func (r *Registry) alternativesFor(exhausted Tier) []string {
	var names []string
	for _, t := range r.tiers {
		if t.Name == exhausted.Name || t.CostPerPage >= exhausted.CostPerPage {
			continue
		}
		if r.limiters[t.Name].HasCapacity() {
			names = append(names, t.Name)
		}
	}
	return names
}
