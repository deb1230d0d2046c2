package constitution

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// IDIdle is the constitution used when a vibe has none of its own.
const IDIdle = "idle"

//go:embed constitutions.yaml
var embeddedConstitutions []byte

type registryFile struct {
	Default       string         `yaml:"default"`
	Constitutions []Constitution `yaml:"constitutions"`
}

// Registry holds one immutable constitution per vibe ID.
type Registry struct {
	byID      map[string]*Constitution
	defaultID string
}

// DefaultRegistry loads the constitutions compiled into the binary.
func DefaultRegistry() (*Registry, error) {
	return LoadRegistry(embeddedConstitutions)
}

// LoadRegistry parses and validates a YAML constitution registry.
func LoadRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing constitution registry: %w", err)
	}

	r := &Registry{
		byID:      make(map[string]*Constitution, len(file.Constitutions)),
		defaultID: file.Default,
	}
	for i := range file.Constitutions {
		c := file.Constitutions[i]
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.byID[c.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidConstitution, c.ID)
		}
		r.byID[c.ID] = &c
	}

	if r.defaultID == "" {
		r.defaultID = IDIdle
	}
	if _, ok := r.byID[r.defaultID]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingDefault, r.defaultID)
	}
	return r, nil
}

// Get returns the constitution for a vibe ID. Unknown IDs resolve to the
// default constitution, so the result is never nil.
func (r *Registry) Get(vibeID string) *Constitution {
	if c, ok := r.byID[strings.ToLower(strings.TrimSpace(vibeID))]; ok {
		return c
	}
	return r.byID[r.defaultID]
}

// Has reports whether a constitution exists for exactly this ID.
func (r *Registry) Has(vibeID string) bool {
	_, ok := r.byID[strings.ToLower(strings.TrimSpace(vibeID))]
	return ok
}

// List returns every constitution sorted by ID.
func (r *Registry) List() []*Constitution {
	out := make([]*Constitution, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
