package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"xkeenui/internal/configs"
	"xkeenui/internal/core"
	"xkeenui/internal/logger"
	"xkeenui/internal/settings"
	"xkeenui/internal/translator"
)

// Response is the envelope of every API reply.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.Warnf("Failed to encode response JSON: %v", err)
	}
}

func respondOK(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, Response{Success: false, Error: msg})
}

// respondErr maps domain errors onto status codes.
func respondErr(w http.ResponseWriter, err error) {
	respondError(w, statusOf(err), err.Error())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, configs.ErrDirNotFound), errors.Is(err, configs.ErrNoConfigs):
		return http.StatusNotFound
	case errors.Is(err, configs.ErrInvalidJSON),
		errors.Is(err, configs.ErrInvalidYAML),
		errors.Is(err, configs.ErrInvalidFilename),
		errors.Is(err, configs.ErrUnknownCore),
		errors.Is(err, configs.ErrUnknownAction),
		errors.Is(err, core.ErrUnknownAction),
		errors.Is(err, core.ErrInvalidCore),
		errors.Is(err, core.ErrCoreMismatch),
		errors.Is(err, settings.ErrInvalidTimezone),
		errors.Is(err, translator.ErrMalformedURI),
		errors.Is(err, translator.ErrUnsupportedProtocol),
		errors.Is(err, translator.ErrUnsupportedFeature):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Log.Debugf("Failed to decode JSON: %v", err)
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}
