package webui

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kayz/promptdeck/internal/persist"
)

func (s *Server) requireLibrary(w http.ResponseWriter) bool {
	if s.library == nil {
		writeError(w, http.StatusServiceUnavailable, "library is not initialized")
		return false
	}
	return true
}

func (s *Server) handleListConfigs(w http.ResponseWriter, _ *http.Request) {
	if !s.requireLibrary(w) {
		return
	}
	list, err := s.library.ListConfigs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	if !s.requireLibrary(w) {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	cfg := s.console.SaveAs(req.Name)
	if err := s.library.SaveConfig(cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleApplyConfig(w http.ResponseWriter, r *http.Request) {
	if !s.requireLibrary(w) {
		return
	}
	cfg, err := s.library.GetConfig(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	if err := s.console.Apply(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.console.View())
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if !s.requireLibrary(w) {
		return
	}
	if err := s.library.DeleteConfig(chi.URLParam(r, "id")); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListInputs(w http.ResponseWriter, _ *http.Request) {
	if !s.requireLibrary(w) {
		return
	}
	list, err := s.library.ListInputs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSaveInput(w http.ResponseWriter, r *http.Request) {
	if !s.requireLibrary(w) {
		return
	}
	var req persist.SavedInput
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		req.Text = s.console.Input()
	}
	in := &persist.SavedInput{Name: req.Name, Text: req.Text}
	if err := s.library.SaveInput(in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleDeleteInput(w http.ResponseWriter, r *http.Request) {
	if !s.requireLibrary(w) {
		return
	}
	if err := s.library.DeleteInput(chi.URLParam(r, "id")); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	if !s.requireLibrary(w) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := s.library.ListRunLogs(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleClearLogs(w http.ResponseWriter, _ *http.Request) {
	if !s.requireLibrary(w) {
		return
	}
	if err := s.library.ClearRunLogs(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	if !s.requireLibrary(w) {
		return
	}
	name := fmt.Sprintf("promptdeck-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := s.library.Export(w); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.requireLibrary(w) {
		return
	}
	bundle, err := s.library.Import(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(bundle.Fields) > 0 || bundle.Prompt != "" {
		list := bundle.Fields
		if len(list) == 0 {
			list = s.console.Fields()
		}
		prompt := bundle.Prompt
		if prompt == "" {
			prompt = s.console.View().Canonical
		}
		if err := s.console.Reload(prompt, list); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"configs": len(bundle.Configs),
		"inputs":  len(bundle.Inputs),
		"fields":  len(bundle.Fields),
	})
}
