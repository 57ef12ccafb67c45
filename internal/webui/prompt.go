package webui

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kayz/promptdeck/internal/fields"
	"github.com/kayz/promptdeck/internal/promptbuild"
	"github.com/kayz/promptdeck/internal/render"
)

type textRequest struct {
	Text string `json:"text"`
	Pos  *int   `json:"pos,omitempty"`
}

func (t textRequest) pos() int {
	if t.Pos == nil {
		return -1
	}
	return *t.Pos
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.console.View())
}

func (s *Server) handleEditPrompt(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if s.console.View().Mode != render.Fold {
		writeError(w, http.StatusConflict, "prompt is read-only while unfolded")
		return
	}
	if req.Pos != nil {
		s.console.SetCursor(*req.Pos)
	}
	writeJSON(w, http.StatusOK, s.console.Edit(req.Text))
}

func (s *Server) handleToggle(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.console.Toggle())
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case "fold":
		writeJSON(w, http.StatusOK, s.console.SetMode(render.Fold))
	case "unfold":
		writeJSON(w, http.StatusOK, s.console.SetMode(render.Unfold))
	default:
		writeError(w, http.StatusBadRequest, "mode must be fold or unfold")
	}
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Pos  *int   `json:"pos,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	pos := -1
	if req.Pos != nil {
		pos = *req.Pos
	}
	writeJSON(w, http.StatusOK, s.console.InsertPlaceholder(req.Name, pos))
}

func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.console.Paste(req.Text, req.pos()))
}

func (s *Server) handleCopy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"text": s.console.CopyText()})
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	mode := promptbuild.ParseMode(r.URL.Query().Get("mode"))
	text := s.console.Expand(mode)
	plain := text
	if mode == promptbuild.Annotated {
		plain = s.console.Expand(promptbuild.Plain)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":       mode.String(),
		"text":       text,
		"word_count": promptbuild.CountWords(plain),
	})
}

func (s *Server) handleListFields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.console.Fields())
}

func (s *Server) handleReplaceFields(w http.ResponseWriter, r *http.Request) {
	var list []fields.Field
	if !decodeJSON(w, r, &list) {
		return
	}
	if err := s.console.ReplaceFields(list); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.console.Fields())
}

func (s *Server) handleSetFieldValue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.fieldResult(w, s.console.SetFieldValue(chi.URLParam(r, "name"), req.Value))
}

func (s *Server) handleSetFieldEnabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.fieldResult(w, s.console.SetFieldEnabled(chi.URLParam(r, "name"), req.Enabled))
}

func (s *Server) handleSetFieldImage(w http.ResponseWriter, r *http.Request) {
	var img fields.Image
	if !decodeJSON(w, r, &img) {
		return
	}
	if img.DataURL != "" && !strings.HasPrefix(img.DataURL, "data:image/") {
		writeError(w, http.StatusBadRequest, "data_url must be an image data URL")
		return
	}
	s.fieldResult(w, s.console.SetFieldImage(chi.URLParam(r, "name"), img))
}

func (s *Server) fieldResult(w http.ResponseWriter, err error) {
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, fields.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fields": s.console.Fields(),
		"view":   s.console.View(),
	})
}

func (s *Server) handleVariables(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.console.VariableNames())
}

func (s *Server) handleGetInput(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"text": s.console.Input()})
}

func (s *Server) handleSetInput(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.console.SetInput(req.Text))
}

type roundsRequest struct {
	MaxRounds int `json:"max_rounds"`
}

func (s *Server) historyPayload() map[string]any {
	return map[string]any{
		"state":     s.console.HistoryState(),
		"indicator": s.console.Indicator(),
		"formatted": s.console.FormattedHistory(),
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.historyPayload())
}

func (s *Server) handleEnableHistory(w http.ResponseWriter, r *http.Request) {
	var req roundsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.console.EnableMultiRound(req.MaxRounds)
	writeJSON(w, http.StatusOK, s.historyPayload())
}

func (s *Server) handleDisableHistory(w http.ResponseWriter, _ *http.Request) {
	s.console.DisableMultiRound()
	writeJSON(w, http.StatusOK, s.historyPayload())
}

func (s *Server) handleResetHistory(w http.ResponseWriter, _ *http.Request) {
	s.console.ResetHistory()
	writeJSON(w, http.StatusOK, s.historyPayload())
}

func (s *Server) handleSetMaxRounds(w http.ResponseWriter, r *http.Request) {
	var req roundsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MaxRounds <= 0 {
		writeError(w, http.StatusBadRequest, "max_rounds must be positive")
		return
	}
	s.console.SetMaxRounds(req.MaxRounds)
	writeJSON(w, http.StatusOK, s.historyPayload())
}
