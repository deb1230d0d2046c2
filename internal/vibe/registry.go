package vibe

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

//go:embed profiles.yaml
var embeddedProfiles []byte

// registryFile is the on-disk layout of a profile registry.
type registryFile struct {
	Default ID            `yaml:"default"`
	Aliases map[string]ID `yaml:"aliases"`
	Vibes   []Profile     `yaml:"vibes"`
}

// Registry is an immutable set of vibe profiles keyed by ID.
type Registry struct {
	profiles  map[ID]*Profile
	aliases   map[string]ID
	defaultID ID
}

// DefaultRegistry loads the profiles compiled into the binary.
func DefaultRegistry() (*Registry, error) {
	return LoadRegistry(embeddedProfiles)
}

// LoadRegistry parses and validates a YAML profile registry.
//
// Every profile is validated and every alias must point at a loaded
// profile. The default vibe must exist. Problems are collected and
// returned together.
func LoadRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing vibe registry: %w", err)
	}

	r := &Registry{
		profiles:  make(map[ID]*Profile, len(file.Vibes)),
		aliases:   make(map[string]ID, len(file.Aliases)),
		defaultID: file.Default,
	}

	for i := range file.Vibes {
		p := file.Vibes[i]
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.profiles[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVibe, p.ID)
		}
		r.profiles[p.ID] = &p
	}

	for alias, target := range file.Aliases {
		if _, ok := r.profiles[target]; !ok {
			return nil, fmt.Errorf("%w: alias %q points at unknown vibe %q", ErrInvalidProfile, alias, target)
		}
		r.aliases[normalizeName(alias)] = target
	}

	if r.defaultID == "" {
		r.defaultID = IDIdle
	}
	if _, ok := r.profiles[r.defaultID]; !ok {
		return nil, fmt.Errorf("%w: default %q", ErrVibeNotFound, r.defaultID)
	}
	return r, nil
}

// Resolve maps a canonical ID or alias (case-insensitive) to a canonical ID.
func (r *Registry) Resolve(name string) (ID, bool) {
	n := normalizeName(name)
	if _, ok := r.profiles[ID(n)]; ok {
		return ID(n), true
	}
	id, ok := r.aliases[n]
	return id, ok
}

// Get returns the profile for an ID or alias.
func (r *Registry) Get(name string) (*Profile, error) {
	id, ok := r.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrVibeNotFound, name)
	}
	return r.profiles[id], nil
}

// Default returns the ID used when no vibe has been chosen.
func (r *Registry) Default() ID {
	return r.defaultID
}

// List returns every profile sorted by ID.
func (r *Registry) List() []*Profile {
	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Aliases returns a copy of the alias table.
func (r *Registry) Aliases() map[string]ID {
	out := make(map[string]ID, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// Validate checks a profile for internal consistency.
func (p *Profile) Validate() error {
	var errs []string

	if p.ID == "" {
		errs = append(errs, "id is required")
	}
	if len(p.Mood.Allowed) == 0 {
		errs = append(errs, "mood.allowed must not be empty")
	}
	if p.Mood.Fallback == "" {
		errs = append(errs, "mood.fallback is required")
	}
	if len(p.Color.Strategies) == 0 {
		errs = append(errs, "color.strategies must not be empty")
	}
	for _, s := range p.Color.Strategies {
		if !lighting.ValidStrategy(s) {
			errs = append(errs, fmt.Sprintf("color.strategies: unknown strategy %q", s))
		}
	}
	if p.Color.Temperature.Min <= 0 || p.Color.Temperature.Min > p.Color.Temperature.Max {
		errs = append(errs, "color.temperature must satisfy 0 < min <= max")
	}
	if !unitRange(p.Color.Saturation) {
		errs = append(errs, "color.saturation must satisfy 0 <= min <= max <= 1")
	}
	if p.Dimmer.Floor < 0 || p.Dimmer.Floor > p.Dimmer.Ceiling || p.Dimmer.Ceiling > 1 {
		errs = append(errs, "dimmer must satisfy 0 <= floor <= ceiling <= 1")
	}
	if len(p.Movement.Patterns) == 0 {
		errs = append(errs, "movement.patterns must not be empty")
	}
	if !unitRange(p.Movement.Speed) {
		errs = append(errs, "movement.speed must satisfy 0 <= min <= max <= 1")
	}
	if p.Drop.Sensitivity <= 0 {
		errs = append(errs, "drop.sensitivity must be positive")
	}
	if p.Drop.CooldownMS < 0 {
		errs = append(errs, "drop.cooldown_ms must not be negative")
	}
	if p.Effects.MaxStrobeRate < 0 {
		errs = append(errs, "effects.max_strobe_rate must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrInvalidProfile, p.ID, strings.Join(errs, "; "))
	}
	return nil
}

func unitRange(r Range) bool {
	return r.Min >= 0 && r.Min <= r.Max && r.Max <= 1
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
