package webui

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kayz/promptdeck/internal/agent"
	"github.com/kayz/promptdeck/internal/console"
	"github.com/kayz/promptdeck/internal/persist"
)

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.ListProviders())
}

func (s *Server) handleGetModel(w http.ResponseWriter, _ *http.Request) {
	m, ok := s.console.Model()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"configured": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configured": true, "model": m})
}

type modelRequest struct {
	persist.ModelSnapshot
	APIKey string `json:"api_key"`
	// Test sends a short ping after connecting.
	Test bool `json:"test"`
}

func (s *Server) handleSetModel(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Provider = strings.TrimSpace(req.Provider)
	req.Model = strings.TrimSpace(req.Model)

	if err := s.console.UseModel(req.ModelSnapshot, req.APIKey); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, _ := s.console.Model()
	resp := map[string]any{"configured": true, "model": m}

	if req.Test {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		reply, err := s.console.TestModel(ctx)
		if err != nil {
			resp["test_error"] = err.Error()
		} else {
			resp["test_reply"] = reply
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.console.Run(r.Context())
	if err != nil {
		writeError(w, runErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"output":      res.Output,
		"mode":        res.Mode,
		"round":       res.Round,
		"duration_ms": res.Duration.Milliseconds(),
		"history":     s.historyPayload(),
	})
}

func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, console.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, agent.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, agent.ErrNoProvider):
		return http.StatusPreconditionFailed
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.console.Cancel()})
}
