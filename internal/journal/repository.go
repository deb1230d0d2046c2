package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeFormat sorts lexically in time order, unlike RFC3339Nano which trims
// trailing zeros.
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

// Repository is the journal store.
type Repository interface {
	Record(ctx context.Context, e *Entry) error
	List(ctx context.Context, q Query) ([]Entry, error)
	ListByKind(ctx context.Context, kind string, limit int) ([]Entry, error)
	Prune(ctx context.Context, before time.Time) (int64, error)

	StartSession(ctx context.Context, s *Session) error
	EndSession(ctx context.Context, id string, frames uint64, at time.Time) error
	GetSession(ctx context.Context, id string) (*Session, error)
}

// SQLiteRepository implements Repository on the show database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a journal repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts an entry, assigning an ID and timestamp when missing.
func (r *SQLiteRepository) Record(ctx context.Context, e *Entry) error {
	if e.Kind == "" {
		return fmt.Errorf("%w: kind is required", ErrInvalidEntry)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	fields := []byte("{}")
	if len(e.Fields) > 0 {
		var err error
		if fields, err = json.Marshal(e.Fields); err != nil {
			return fmt.Errorf("marshalling fields: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO journal_events (id, kind, vibe_id, session_id, fields, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Kind,
		e.VibeID,
		nullableString(e.SessionID),
		string(fields),
		formatTime(e.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (r *SQLiteRepository) List(ctx context.Context, q Query) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, q.Kind)
	}
	if q.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if !q.Since.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, formatTime(q.Since))
	}

	query := `SELECT id, kind, vibe_id, session_id, fields, occurred_at FROM journal_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at DESC, rowid DESC LIMIT ?"
	args = append(args, q.limit())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}
	return entries, nil
}

// ListByKind returns the newest entries of one kind.
func (r *SQLiteRepository) ListByKind(ctx context.Context, kind string, limit int) ([]Entry, error) {
	return r.List(ctx, Query{Kind: kind, Limit: limit})
}

// Prune deletes entries that occurred before the cutoff.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM journal_events WHERE occurred_at < ?`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking pruned rows: %w", err)
	}
	return n, nil
}

// StartSession opens a session row.
func (r *SQLiteRepository) StartSession(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO show_sessions (id, show_id, version, started_at, frames)
		VALUES (?, ?, ?, ?, 0)`,
		s.ID, s.ShowID, s.Version, formatTime(s.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// EndSession closes a session with its final frame count.
func (r *SQLiteRepository) EndSession(ctx context.Context, id string, frames uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE show_sessions SET ended_at = ?, frames = ?
		WHERE id = ? AND ended_at IS NULL`,
		formatTime(at), int64(frames), id, //nolint:gosec // frame counts stay far below MaxInt64
	)
	if err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking session update: %w", err)
	}
	if n == 0 {
		if _, err := r.GetSession(ctx, id); err != nil {
			return err
		}
		return ErrSessionEnded
	}
	return nil
}

// GetSession retrieves a session by ID.
func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*Session, error) {
	var (
		s         Session
		startedAt string
		endedAt   sql.NullString
		frames    int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, show_id, version, started_at, ended_at, frames
		FROM show_sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.ShowID, &s.Version, &startedAt, &endedAt, &frames)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if s.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t, err := parseTime(endedAt.String)
		if err != nil {
			return nil, err
		}
		s.EndedAt = &t
	}
	s.Frames = uint64(frames) //nolint:gosec // stored from a uint64
	return &s, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e          Entry
		sessionID  sql.NullString
		fieldsJSON string
		occurredAt string
	)
	if err := rows.Scan(&e.ID, &e.Kind, &e.VibeID, &sessionID, &fieldsJSON, &occurredAt); err != nil {
		return Entry{}, fmt.Errorf("scanning journal entry: %w", err)
	}
	e.SessionID = sessionID.String

	if fieldsJSON != "" && fieldsJSON != "{}" {
		if err := json.Unmarshal([]byte(fieldsJSON), &e.Fields); err != nil {
			return Entry{}, fmt.Errorf("unmarshalling fields of %s: %w", e.ID, err)
		}
	}

	t, err := parseTime(occurredAt)
	if err != nil {
		return Entry{}, err
	}
	e.OccurredAt = t
	return e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
