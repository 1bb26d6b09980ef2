package api

import (
	"net/http"
	"strings"

	"xkeenui/internal/configs"
	"xkeenui/internal/logger"
	"xkeenui/internal/logs"
)

type configsResponse struct {
	Success bool               `json:"success"`
	Configs []configs.Document `json:"configs,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// coreParam picks the core named in the query, or the active one.
func (s *Server) coreParam(r *http.Request) string {
	if c := r.URL.Query().Get("core"); c != "" {
		return c
	}
	if _, err := s.core.Detect(); err != nil {
		logger.Log.Debugf("Core detection: %v", err)
	}
	return s.core.Current()
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	docs, err := s.configs.List(s.coreParam(r))
	if err != nil {
		respondJSON(w, statusOf(err), configsResponse{Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, configsResponse{Success: true, Configs: docs})
}

func (s *Server) handleConfigAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action   string `json:"action"`
		Filename string `json:"filename"`
		Content  string `json:"content"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.configs.Apply(r.Context(), s.coreParam(r), req.Action, req.Filename, req.Content); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, nil)
}

func (s *Server) handleRevisions(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		respondError(w, http.StatusBadRequest, "filename is required")
		return
	}
	revs, err := s.configs.Revisions(r.Context(), s.coreParam(r), filename)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, revs)
}

func (s *Server) handleControlStatus(w http.ResponseWriter, r *http.Request) {
	st := s.core.Status(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"cores":       st.Cores,
		"currentCore": st.CurrentCore,
		"running":     st.Running,
		"status":      st.Status,
	})
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
		Core   string `json:"core"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := s.core.Do(r.Context(), req.Action, req.Core)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, msg)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.core.Status(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"running": st.Running,
		"status":  st.Status,
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"timezoneOffset": s.settings.TimezoneOffset(),
	})
}

func (s *Server) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TimezoneOffset int `json:"timezoneOffset"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.settings.SetTimezoneOffset(r.Context(), req.TimezoneOffset); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "Settings saved")
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	lines := s.logs.Lines(s.cfg.LogPath(r.URL.Query().Get("file")))
	if q := r.URL.Query().Get("filter"); q != "" {
		lines = logs.Filter(lines, q)
	}
	respondOK(w, strings.Join(lines, "\n"))
}

func (s *Server) handleLogAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
		File   string `json:"file"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Action != "clear" {
		respondError(w, http.StatusBadRequest, "Unknown action")
		return
	}
	if err := s.logs.Clear(s.cfg.LogPath(req.File)); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "Log cleared")
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"version": s.version,
	})
}
