package api

import (
	"net/http"

	"xkeenui/internal/logger"
	"xkeenui/internal/translator"
)

type generateRequest struct {
	URI      string `json:"uri"`
	Core     string `json:"core"`
	Existing string `json:"existing"`
}

type generateResponse struct {
	Success bool   `json:"success"`
	Type    string `json:"type,omitempty"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content,omitempty"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Core == "" {
		req.Core = s.coreParam(r)
	}
	dialect, err := translator.ParseDialect(req.Core)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, generateResponse{Error: err.Error()})
		return
	}

	res, err := translator.Generate(req.URI, dialect, req.Existing)
	if err != nil {
		logger.Log.Debugf("Generate failed for %s link: %v", dialect, err)
		respondJSON(w, statusOf(err), generateResponse{Error: err.Error()})
		return
	}

	out := generateResponse{
		Success: true,
		Type:    string(res.Kind),
		Name:    res.Name,
		Content: res.Content,
	}
	if dialect == translator.DialectXray && s.cfg.Translator.ValidateXray {
		if err := translator.ValidateXray(res.Content); err != nil {
			out.Warning = err.Error()
		}
	}
	respondJSON(w, http.StatusOK, out)
}
