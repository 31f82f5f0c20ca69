package classify

import (
	"fmt"
	"sort"
)

// Built-in threshold profile names.
const (
	ProfileStandard  = "Standard"
	ProfileHighRange = "High Range"
)

// Profile is a named, immutable set of pass/fail limits. All bounds are
// exclusive: a 120s reading exactly at Min120s or Max120s passes.
type Profile struct {
	Min120s      float64 `yaml:"min_120s" mapstructure:"min_120s" json:"min_120s"`
	Max120s      float64 `yaml:"max_120s" mapstructure:"max_120s" json:"max_120s"`
	MinPctChange float64 `yaml:"min_pct_change" mapstructure:"min_pct_change" json:"min_pct_change"`
	MaxPctChange float64 `yaml:"max_pct_change" mapstructure:"max_pct_change" json:"max_pct_change"`
	MaxStdDev    float64 `yaml:"max_std_dev" mapstructure:"max_std_dev" json:"max_std_dev"`
}

// validate checks profile sanity.
func (p Profile) validate(name string) error {
	if p.Min120s >= p.Max120s {
		return fmt.Errorf("profile %q: min_120s (%v) must be below max_120s (%v)",
			name, p.Min120s, p.Max120s)
	}

	if p.MinPctChange >= p.MaxPctChange {
		return fmt.Errorf("profile %q: min_pct_change (%v) must be below max_pct_change (%v)",
			name, p.MinPctChange, p.MaxPctChange)
	}

	if p.MaxStdDev <= 0 {
		return fmt.Errorf("profile %q: max_std_dev (%v) must be positive",
			name, p.MaxStdDev)
	}

	return nil
}

// builtinProfiles returns the profiles every deployment carries.
func builtinProfiles() map[string]Profile {
	return map[string]Profile{
		ProfileStandard: {
			Min120s:      1.50,
			Max120s:      4.9,
			MinPctChange: -6.00,
			MaxPctChange: 30.00,
			MaxStdDev:    0.3,
		},
		ProfileHighRange: {
			Min120s:      0.55,
			Max120s:      1.0,
			MinPctChange: -10.00,
			MaxPctChange: 75.00,
			MaxStdDev:    0.5,
		},
	}
}

// Registry holds the threshold profiles available to classification calls.
// It is constructed once at startup and read-only afterwards.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry builds a registry from the built-in profiles plus any
// config-defined extras. Extras may override built-ins by name. Every
// profile is sanity-checked; a bad profile fails construction.
func NewRegistry(extra map[string]Profile) (*Registry, error) {
	profiles := builtinProfiles()

	for name, p := range extra {
		if name == "" {
			return nil, fmt.Errorf("profile with empty name")
		}

		profiles[name] = p
	}

	for name, p := range profiles {
		if err := p.validate(name); err != nil {
			return nil, err
		}
	}

	return &Registry{profiles: profiles}, nil
}

// Get returns the named profile. An unknown name is a caller programming
// error and must fail fast rather than silently default.
func (r *Registry) Get(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown threshold profile %q (known: %v)",
			name, r.Names())
	}

	return p, nil
}

// Names returns the registered profile names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Profiles returns a copy of the registered profiles keyed by name.
func (r *Registry) Profiles() map[string]Profile {
	out := make(map[string]Profile, len(r.profiles))
	for name, p := range r.profiles {
		out[name] = p
	}

	return out
}
