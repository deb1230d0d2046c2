package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-lux/migrations"
)

var t0 = time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func record(t *testing.T, r *SQLiteRepository, e Entry) Entry {
	t.Helper()
	if err := r.Record(context.Background(), &e); err != nil {
		t.Fatalf("Record(%s) error = %v", e.Kind, err)
	}
	return e
}

// ─── Entries ────────────────────────────────────────────────────────

func TestRecord_RoundTrip(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	want := record(t, r, Entry{
		Kind:       "key_committed",
		VibeID:     "techno-club",
		Fields:     map[string]any{"key": "Am", "confidence": 0.8},
		OccurredAt: t0,
	})
	if want.ID == "" {
		t.Fatal("Record() did not assign an ID")
	}

	got, err := r.List(ctx, Query{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if diff := cmp.Diff([]Entry{want}, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecord_Defaults(t *testing.T) {
	r := setupRepo(t)

	e := record(t, r, Entry{Kind: "silence_reset"})
	if e.OccurredAt.IsZero() {
		t.Error("OccurredAt not stamped")
	}

	got, err := r.List(context.Background(), Query{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].Fields != nil || got[0].SessionID != "" {
		t.Errorf("List() = %+v, want one entry without fields or session", got)
	}
}

func TestRecord_MissingKind(t *testing.T) {
	r := setupRepo(t)
	if err := r.Record(context.Background(), &Entry{}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Record() error = %v, want ErrInvalidEntry", err)
	}
}

func TestList_Filters(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	record(t, r, Entry{Kind: "vibe_changed", OccurredAt: t0, SessionID: "s1"})
	record(t, r, Entry{Kind: "drop_started", OccurredAt: t0.Add(time.Minute), SessionID: "s1"})
	record(t, r, Entry{Kind: "drop_started", OccurredAt: t0.Add(2 * time.Minute), SessionID: "s2"})
	record(t, r, Entry{Kind: "effect_triggered", OccurredAt: t0.Add(3 * time.Minute), SessionID: "s2"})

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"newest first", Query{}, []string{"effect_triggered", "drop_started", "drop_started", "vibe_changed"}},
		{"kind", Query{Kind: "drop_started"}, []string{"drop_started", "drop_started"}},
		{"session", Query{SessionID: "s1"}, []string{"drop_started", "vibe_changed"}},
		{"since", Query{Since: t0.Add(2 * time.Minute)}, []string{"effect_triggered", "drop_started"}},
		{"limit", Query{Limit: 1}, []string{"effect_triggered"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := r.List(ctx, tt.query)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var got []string
			for _, e := range entries {
				got = append(got, e.Kind)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("kinds mismatch (-want +got):\n%s", diff)
			}
		})
	}

	byKind, err := r.ListByKind(ctx, "drop_started", 1)
	if err != nil {
		t.Fatalf("ListByKind() error = %v", err)
	}
	if len(byKind) != 1 || !byKind[0].OccurredAt.Equal(t0.Add(2*time.Minute)) {
		t.Errorf("ListByKind() = %+v, want the latest drop", byKind)
	}
}

func TestQuery_Limit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{25, 25},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		if got := (Query{Limit: tt.in}).limit(); got != tt.want {
			t.Errorf("limit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPrune(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	record(t, r, Entry{Kind: "old", OccurredAt: t0.Add(-48 * time.Hour)})
	record(t, r, Entry{Kind: "old", OccurredAt: t0.Add(-25 * time.Hour)})
	record(t, r, Entry{Kind: "recent", OccurredAt: t0})

	n, err := r.Prune(ctx, t0.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() = %d, want 2", n)
	}

	left, err := r.List(ctx, Query{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(left) != 1 || left[0].Kind != "recent" {
		t.Errorf("remaining = %+v", left)
	}
}

// ─── Sessions ───────────────────────────────────────────────────────

func TestSessions(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	s := &Session{ShowID: "rig-001", Version: "1.2.0", StartedAt: t0}
	if err := r.StartSession(ctx, s); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if s.ID == "" {
		t.Fatal("StartSession() did not assign an ID")
	}

	open, err := r.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if open.EndedAt != nil || !open.StartedAt.Equal(t0) || open.Version != "1.2.0" {
		t.Errorf("open session = %+v", open)
	}

	end := t0.Add(3 * time.Hour)
	if err := r.EndSession(ctx, s.ID, 648000, end); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	closed, err := r.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if closed.EndedAt == nil || !closed.EndedAt.Equal(end) || closed.Frames != 648000 {
		t.Errorf("closed session = %+v", closed)
	}

	if err := r.EndSession(ctx, s.ID, 1, end); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("EndSession() twice error = %v, want ErrSessionEnded", err)
	}
	if err := r.EndSession(ctx, "missing", 1, end); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("EndSession(missing) error = %v, want ErrSessionNotFound", err)
	}
	if _, err := r.GetSession(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession(missing) error = %v, want ErrSessionNotFound", err)
	}
}
