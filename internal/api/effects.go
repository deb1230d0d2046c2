package api

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-lux/internal/effects"
	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

// triggerRequest is the body of POST /effects and POST /strike.
// Intensity defaults to 1 when omitted.
type triggerRequest struct {
	Type      string          `json:"type"`
	Intensity *float64        `json:"intensity,omitempty"`
	Zones     []lighting.Zone `json:"zones,omitempty"`
}

// validate checks the request and returns the resolved intensity.
func (req triggerRequest) validate() (float64, string) {
	if req.Type == "" || len(req.Type) > maxQueryParamLen {
		return 0, "type is required"
	}
	if req.Intensity == nil {
		return 1, ""
	}
	v := *req.Intensity
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, "intensity must be between 0 and 1"
	}
	return v, ""
}

// handleListEffects returns running effect instances and the registered types.
func (s *Server) handleListEffects(w http.ResponseWriter, _ *http.Request) {
	active := s.engine.ActiveEffects()
	writeJSON(w, http.StatusOK, map[string]any{
		"effects": active,
		"count":   len(active),
		"types":   s.engine.EffectTypes(),
	})
}

// handleTriggerEffect fires an effect immediately, subject to the active
// vibe's effect policy.
func (s *Server) handleTriggerEffect(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	intensity, msg := req.validate()
	if msg != "" {
		writeBadRequest(w, msg)
		return
	}

	id, err := s.engine.TriggerEffect(effects.TriggerConfig{
		Type:      req.Type,
		Intensity: intensity,
		Zones:     req.Zones,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        id,
		"type":      req.Type,
		"intensity": intensity,
	})
}

// handleStrike queues a manual strike for the next frame.
func (s *Server) handleStrike(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	intensity, msg := req.validate()
	if msg != "" {
		writeBadRequest(w, msg)
		return
	}

	if err := s.engine.QueueStrike(req.Type, intensity); err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":    "queued",
		"type":      req.Type,
		"intensity": intensity,
	})
}

// handleAbortAllEffects stops every effect and clears queued strikes.
func (s *Server) handleAbortAllEffects(w http.ResponseWriter, _ *http.Request) {
	n := s.engine.AbortAllEffects()
	writeJSON(w, http.StatusOK, map[string]int{"aborted": n})
}

// handleAbortEffect stops one effect instance.
func (s *Server) handleAbortEffect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid effect ID")
		return
	}

	if err := s.engine.AbortEffect(id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"aborted": id})
}
