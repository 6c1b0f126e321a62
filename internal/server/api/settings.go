// Package api provides the HTTP handlers for runtime tuning.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/handboard/internal/engine"
	"github.com/ayusman/handboard/internal/store"
)

// EventPoster queues engine events. *engine.Engine satisfies it.
type EventPoster interface {
	Post(ev engine.Event) error
}

// SettingsHandler serves /api/settings. Writes are validated, pushed to
// the engine and then persisted so they survive a restart.
type SettingsHandler struct {
	store    *store.Store
	events   EventPoster
	defaults map[string]float64
}

// NewSettingsHandler creates a handler. defaults holds the configured
// value of every tuning key, used when an override is deleted.
func NewSettingsHandler(s *store.Store, events EventPoster, defaults map[string]float64) *SettingsHandler {
	return &SettingsHandler{store: s, events: events, defaults: defaults}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/settings or /api/settings/{key}
	key := strings.TrimPrefix(r.URL.Path, "/api/settings")
	key = strings.TrimPrefix(key, "/")

	if key == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	if !engine.IsTuningKey(key) {
		writeError(w, http.StatusNotFound, "Unknown setting")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, key)
	case http.MethodPut:
		h.put(w, r, key)
	case http.MethodDelete:
		h.delete(w, r, key)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type settingResponse struct {
	Key        string  `json:"key"`
	Value      float64 `json:"value"`
	Default    float64 `json:"default"`
	Overridden bool    `json:"overridden"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

type listSettingsResponse struct {
	Settings []settingResponse `json:"settings"`
}

type putSettingRequest struct {
	Value *float64 `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (h *SettingsHandler) response(key string, s *store.Setting) settingResponse {
	resp := settingResponse{Key: key, Value: h.defaults[key], Default: h.defaults[key]}
	if s != nil {
		resp.Value = s.Value
		resp.Overridden = true
		if !s.UpdatedAt.IsZero() {
			resp.UpdatedAt = s.UpdatedAt.Format(time.RFC3339)
		}
	}
	return resp
}

// list handles GET /api/settings: every tuning key with its effective value.
func (h *SettingsHandler) list(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.store.Settings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list settings")
		return
	}
	byKey := make(map[string]*store.Setting, len(overrides))
	for i := range overrides {
		byKey[overrides[i].Key] = &overrides[i]
	}

	resp := listSettingsResponse{Settings: make([]settingResponse, 0, len(engine.TuningKeys))}
	for _, key := range engine.TuningKeys {
		resp.Settings = append(resp.Settings, h.response(key, byKey[key]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// get handles GET /api/settings/{key}.
func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request, key string) {
	s, err := h.store.Settings().Get(key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to get setting")
		return
	}
	writeJSON(w, http.StatusOK, h.response(key, s))
}

// put handles PUT /api/settings/{key} with body {"value": <float>}.
func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request, key string) {
	var req putSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "Value is required")
		return
	}
	v := *req.Value
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		writeError(w, http.StatusBadRequest, "Value must be a positive number")
		return
	}

	if err := h.events.Post(engine.TuningEvent{Key: key, Value: v}); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Engine busy")
		return
	}
	if err := h.store.Settings().Set(key, v); err != nil {
		log.Printf("Failed to persist %s: %v", key, err)
		writeError(w, http.StatusInternalServerError, "Failed to save setting")
		return
	}

	s, err := h.store.Settings().Get(key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get setting")
		return
	}
	writeJSON(w, http.StatusOK, h.response(key, s))
}

// delete handles DELETE /api/settings/{key}: drops the override and
// restores the configured value.
func (h *SettingsHandler) delete(w http.ResponseWriter, r *http.Request, key string) {
	if err := h.store.Settings().Delete(key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Setting not overridden")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete setting")
		return
	}

	if def, ok := h.defaults[key]; ok {
		if err := h.events.Post(engine.TuningEvent{Key: key, Value: def}); err != nil {
			log.Printf("Failed to restore %s: %v", key, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
