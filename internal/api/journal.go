package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-lux/internal/journal"
)

// maxQueryParamLen limits query parameter length to prevent DoS via oversized URL params.
const maxQueryParamLen = 100

// handleListJournal returns recorded show events, newest first.
//
// Query parameters:
//   - kind: filter by event kind (vibe_changed, drop_started, ...)
//   - session: filter by session ID
//   - since: RFC 3339 lower bound on occurred_at
//   - limit: page size, clamped to journal.MaxLimit
func (s *Server) handleListJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "journal not configured")
		return
	}

	params := r.URL.Query()
	q := journal.Query{
		Kind:      params.Get("kind"),
		SessionID: params.Get("session"),
	}
	if len(q.Kind) > maxQueryParamLen || len(q.SessionID) > maxQueryParamLen {
		writeBadRequest(w, "query parameter exceeds maximum length")
		return
	}
	if raw := params.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		q.Since = since
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		q.Limit = limit
	}

	entries, err := s.journal.List(r.Context(), q)
	if err != nil {
		s.logger.Error("journal query failed", "error", err)
		writeInternalError(w, "failed to list journal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// handleGetSession returns one show session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "journal not configured")
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid session ID")
		return
	}

	sess, err := s.journal.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, journal.ErrSessionNotFound) {
			writeNotFound(w, "session not found")
			return
		}
		writeInternalError(w, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
