package vibe

import (
	"errors"
	"testing"
)

func TestDefaultRegistry_LoadsEmbeddedProfiles(t *testing.T) {
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry() error = %v", err)
	}

	want := []ID{IDChillLounge, IDFiestaLatina, IDIdle, IDPopRock, IDTechnoClub}
	got := reg.List()
	if len(got) != len(want) {
		t.Fatalf("List() returned %d profiles, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.ID != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, p.ID, want[i])
		}
	}
	if reg.Default() != IDIdle {
		t.Errorf("Default() = %s, want idle", reg.Default())
	}
}

func TestRegistry_Resolve(t *testing.T) {
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry() error = %v", err)
	}

	tests := []struct {
		name   string
		want   ID
		wantOK bool
	}{
		{"techno-club", IDTechnoClub, true},
		{"techno", IDTechnoClub, true},
		{"  TECHNO ", IDTechnoClub, true},
		{"chill", IDChillLounge, true},
		{"rock", IDPopRock, true},
		{"latino", IDFiestaLatina, true},
		{"polka", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := reg.Resolve(tt.name)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Resolve(%q) = (%s, %v), want (%s, %v)", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if _, err := reg.Get("polka"); !errors.Is(err, ErrVibeNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrVibeNotFound", err)
	}
}

func TestLoadRegistry_Errors(t *testing.T) {
	const valid = `
  - id: only
    mood: {allowed: [calm], fallback: calm}
    color:
      strategies: [analogous]
      temperature: {min: 3000, max: 6000}
      saturation: {min: 0.2, max: 0.8}
    drop: {sensitivity: 1}
    dimmer: {floor: 0.1, ceiling: 0.9}
    movement:
      patterns: [static]
      speed: {min: 0, max: 0.5}
`
	const broken = `
  - id: broken
    mood: {allowed: [calm], fallback: calm}
    color: {strategies: [analogous], temperature: {min: 3000, max: 6000}, saturation: {min: 0, max: 1}}
    drop: {sensitivity: 1}
    dimmer: {floor: 0.9, ceiling: 0.1}
    movement: {patterns: [static], speed: {min: 0, max: 1}}
`

	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "malformed yaml",
			yaml:    "vibes: [",
			wantErr: nil,
		},
		{
			name:    "missing default",
			yaml:    "default: nowhere\nvibes:" + valid,
			wantErr: ErrVibeNotFound,
		},
		{
			name:    "duplicate id",
			yaml:    "default: only\nvibes:" + valid + valid,
			wantErr: ErrDuplicateVibe,
		},
		{
			name:    "alias to unknown vibe",
			yaml:    "default: only\naliases: {x: nowhere}\nvibes:" + valid,
			wantErr: ErrInvalidProfile,
		},
		{
			name:    "floor above ceiling",
			yaml:    "default: only\nvibes:" + valid + broken,
			wantErr: ErrInvalidProfile,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistry([]byte(tt.yaml))
			if err == nil {
				t.Fatal("LoadRegistry() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadRegistry() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRegistry_DefaultsToIdle(t *testing.T) {
	_, err := LoadRegistry([]byte("vibes: []\n"))
	if !errors.Is(err, ErrVibeNotFound) {
		t.Errorf("empty registry error = %v, want ErrVibeNotFound for missing idle", err)
	}
}
