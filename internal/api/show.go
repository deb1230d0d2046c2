package api

import (
	"encoding/json"
	"net/http"
)

// setVibeRequest is the body of PUT /vibe.
type setVibeRequest struct {
	Vibe      string `json:"vibe"`
	Immediate bool   `json:"immediate,omitempty"`
}

// setConsciousnessRequest is the body of PUT /consciousness.
type setConsciousnessRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleGetIntent returns the most recent lighting intent.
func (s *Server) handleGetIntent(w http.ResponseWriter, _ *http.Request) {
	intent, ok := s.engine.LastIntent()
	if !ok {
		writeNotFound(w, "no frame rendered yet")
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// handleGetState returns the engine's diagnostic snapshot.
func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.State())
}

// handleListVibes returns every vibe profile with the active and default IDs.
func (s *Server) handleListVibes(w http.ResponseWriter, _ *http.Request) {
	reg := s.engine.Vibes()
	profiles := reg.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"vibes":   profiles,
		"count":   len(profiles),
		"active":  s.engine.ActiveVibe(),
		"default": reg.Default(),
		"aliases": reg.Aliases(),
	})
}

// handleSetVibe switches vibe, crossfading unless immediate is set.
func (s *Server) handleSetVibe(w http.ResponseWriter, r *http.Request) {
	var req setVibeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Vibe == "" || len(req.Vibe) > maxQueryParamLen {
		writeBadRequest(w, "vibe is required")
		return
	}

	set := s.engine.SetVibe
	if req.Immediate {
		set = s.engine.SetVibeImmediate
	}
	changed, err := set(req.Vibe)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if changed {
		s.logger.Info("vibe set",
			"vibe", s.engine.ActiveVibe(),
			"immediate", req.Immediate,
			"operator", operatorFrom(r.Context()),
		)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"vibe":      s.engine.ActiveVibe(),
		"changed":   changed,
		"immediate": req.Immediate,
	})
}

// handleSetConsciousness turns the AI layer on or off.
func (s *Server) handleSetConsciousness(w http.ResponseWriter, r *http.Request) {
	var req setConsciousnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled is required")
		return
	}

	s.engine.SetConsciousnessEnabled(*req.Enabled)
	s.logger.Info("consciousness toggled", "enabled", *req.Enabled, "operator", operatorFrom(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": s.engine.ConsciousnessEnabled(),
	})
}

// handleResetStabilizers clears every stabilizer's history.
func (s *Server) handleResetStabilizers(w http.ResponseWriter, _ *http.Request) {
	s.engine.ResetStabilizers()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
