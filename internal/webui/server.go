package webui

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kayz/promptdeck/internal/ai"
	"github.com/kayz/promptdeck/internal/console"
	"github.com/kayz/promptdeck/internal/persist"
	"github.com/kayz/promptdeck/internal/relay"
)

// RelayStatus reports relay connectivity. It is optional.
type RelayStatus interface {
	Status() relay.Status
}

// Options wires the server to a console session.
type Options struct {
	Console *console.Console
	Library *persist.Store
	Catalog *ai.Registry
	Relay   RelayStatus
}

type Server struct {
	console   *console.Console
	library   *persist.Store
	catalog   *ai.Registry
	relay     RelayStatus
	startedAt time.Time
}

func NewServer(opts Options) *Server {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = ai.NewRegistry()
	}
	return &Server{
		console:   opts.Console,
		library:   opts.Library,
		catalog:   catalog,
		relay:     opts.Relay,
		startedAt: time.Now().UTC(),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Get("/prompt", s.handleGetPrompt)
		r.Put("/prompt", s.handleEditPrompt)
		r.Post("/prompt/toggle", s.handleToggle)
		r.Put("/prompt/mode", s.handleSetMode)
		r.Post("/prompt/insert", s.handleInsert)
		r.Post("/prompt/paste", s.handlePaste)
		r.Get("/prompt/copy", s.handleCopy)
		r.Get("/prompt/expand", s.handleExpand)

		r.Get("/fields", s.handleListFields)
		r.Put("/fields", s.handleReplaceFields)
		r.Put("/fields/{name}/value", s.handleSetFieldValue)
		r.Put("/fields/{name}/enabled", s.handleSetFieldEnabled)
		r.Put("/fields/{name}/image", s.handleSetFieldImage)
		r.Get("/variables", s.handleVariables)

		r.Get("/input", s.handleGetInput)
		r.Put("/input", s.handleSetInput)

		r.Get("/history", s.handleHistory)
		r.Post("/history/enable", s.handleEnableHistory)
		r.Post("/history/disable", s.handleDisableHistory)
		r.Post("/history/reset", s.handleResetHistory)
		r.Put("/history/max", s.handleSetMaxRounds)

		r.Get("/providers", s.handleProviders)
		r.Get("/model", s.handleGetModel)
		r.Put("/model", s.handleSetModel)
		r.Post("/run", s.handleRun)
		r.Post("/run/cancel", s.handleCancel)

		r.Get("/configs", s.handleListConfigs)
		r.Post("/configs", s.handleSaveConfig)
		r.Post("/configs/{id}/apply", s.handleApplyConfig)
		r.Delete("/configs/{id}", s.handleDeleteConfig)

		r.Get("/inputs", s.handleListInputs)
		r.Post("/inputs", s.handleSaveInput)
		r.Delete("/inputs/{id}", s.handleDeleteInput)

		r.Get("/logs", s.handleListLogs)
		r.Delete("/logs", s.handleClearLogs)

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
	})
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(defaultIndexHTML))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"ok":         true,
		"started_at": s.startedAt.Format(time.RFC3339),
		"uptime_sec": int(time.Since(s.startedAt).Seconds()),
		"running":    s.console.Running(),
		"round":      s.console.Indicator(),
	}
	if m, ok := s.console.Model(); ok {
		payload["model"] = m
	}
	if s.relay != nil {
		payload["relay"] = s.relay.Status()
	}
	writeJSON(w, http.StatusOK, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps a domain error to an HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, persist.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, console.ErrRunInProgress):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
