// Package tier names Crew Score tiers and keeps persisted tiers from regressing.
package tier

import (
	"fmt"
	"sort"
)

// Levels is the number of ordinal tier levels.
const Levels = 5

// Resolver maps a score to a tier name and an ordinal level in [1, Levels].
// Implementations must be pure and monotonic in score.
type Resolver interface {
	Resolve(score int, theme string, customNames []string) (name string, level int)
	// Name returns the tier name of level, clamped to [1, Levels].
	Name(level int, theme string, customNames []string) string
}

// DefaultTheme is used when a group has no theme or an unknown one.
const DefaultTheme = "classic"

// DefaultThresholds are the inclusive lower score bounds of levels 1..5.
var DefaultThresholds = [Levels]int{0, 200, 400, 600, 800} //nolint:gochecknoglobals // read-only defaults

// DefaultThemes returns the built-in tier name tables.
func DefaultThemes() map[string][]string {
	return map[string][]string{
		"classic":  {"Rookie", "Regular", "Veteran", "Legend", "Icon"},
		"nautical": {"Deckhand", "Sailor", "Bosun", "First Mate", "Captain"},
		"trail":    {"Scout", "Ranger", "Pathfinder", "Elder", "Chief"},
	}
}

// ThresholdResolver resolves tiers from a fixed threshold table.
type ThresholdResolver struct {
	thresholds   [Levels]int
	themes       map[string][]string
	defaultTheme string
}

// Option applies a configuration option to the ThresholdResolver.
type Option func(*ThresholdResolver) error

// WithThresholds sets the lower bounds of each level. The first bound must be 0
// and bounds must strictly increase.
func WithThresholds(bounds []int) Option {
	return func(r *ThresholdResolver) error {
		if len(bounds) == 0 {
			return nil
		}
		if len(bounds) != Levels || bounds[0] != 0 {
			return fmt.Errorf("%w: need %d bounds starting at 0, got %v", ErrInvalidThresholds, Levels, bounds)
		}
		for i := 1; i < len(bounds); i++ {
			if bounds[i] <= bounds[i-1] {
				return fmt.Errorf("%w: bounds must increase, got %v", ErrInvalidThresholds, bounds)
			}
		}
		copy(r.thresholds[:], bounds)
		return nil
	}
}

// WithThemes adds or replaces theme name tables. Each table needs one name per level.
func WithThemes(themes map[string][]string) Option {
	return func(r *ThresholdResolver) error {
		for theme, names := range themes {
			if len(names) != Levels {
				return fmt.Errorf("%w: theme %q has %d names, need %d", ErrInvalidTheme, theme, len(names), Levels)
			}
			r.themes[theme] = append([]string(nil), names...)
		}
		return nil
	}
}

// WithDefaultTheme sets the theme used for unknown theme identifiers.
func WithDefaultTheme(theme string) Option {
	return func(r *ThresholdResolver) error {
		if theme == "" {
			return nil
		}
		r.defaultTheme = theme
		return nil
	}
}

// NewThresholdResolver builds a resolver from the defaults plus opts.
func NewThresholdResolver(opts ...Option) (*ThresholdResolver, error) {
	r := &ThresholdResolver{
		thresholds:   DefaultThresholds,
		themes:       DefaultThemes(),
		defaultTheme: DefaultTheme,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if _, ok := r.themes[r.defaultTheme]; !ok {
		return nil, fmt.Errorf("%w: default theme %q is not defined", ErrInvalidTheme, r.defaultTheme)
	}
	return r, nil
}

// Resolve implements Resolver.
func (r *ThresholdResolver) Resolve(score int, theme string, customNames []string) (string, int) {
	// index of the first bound above score, minus one
	idx := sort.Search(Levels, func(i int) bool { return r.thresholds[i] > score }) - 1
	if idx < 0 {
		idx = 0
	}
	return r.names(theme, customNames)[idx], idx + 1
}

// Name implements Resolver.
func (r *ThresholdResolver) Name(level int, theme string, customNames []string) string {
	return r.names(theme, customNames)[min(max(level, 1), Levels)-1]
}

func (r *ThresholdResolver) names(theme string, customNames []string) []string {
	if len(customNames) == Levels {
		return customNames
	}
	if names, ok := r.themes[theme]; ok {
		return names
	}
	return r.themes[r.defaultTheme]
}
