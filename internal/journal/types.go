package journal

import "time"

// Entry is one journaled show event.
type Entry struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	VibeID    string         `json:"vibe_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// Session is one run of the service against a rig.
type Session struct {
	ID        string     `json:"id"`
	ShowID    string     `json:"show_id"`
	Version   string     `json:"version,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Frames    uint64     `json:"frames"`
}

// Query narrows List. Zero values mean no filter; Limit is clamped to
// [1, MaxLimit] with DefaultLimit when unset.
type Query struct {
	Kind      string
	SessionID string
	Since     time.Time
	Limit     int
}

// List limits.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

func (q Query) limit() int {
	switch {
	case q.Limit <= 0:
		return DefaultLimit
	case q.Limit > MaxLimit:
		return MaxLimit
	default:
		return q.Limit
	}
}
