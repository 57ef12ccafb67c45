package webui

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kayz/promptdeck/internal/ai"
	"github.com/kayz/promptdeck/internal/console"
	"github.com/kayz/promptdeck/internal/persist"
)

func newTestServer(t *testing.T) (http.Handler, *persist.Store) {
	t.Helper()
	store, err := persist.NewStore(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	c, err := console.New(console.Options{Store: store, Catalog: ai.NewRegistry(), Logs: store})
	if err != nil {
		t.Fatalf("new console: %v", err)
	}
	return NewServer(Options{Console: c, Library: store}).Handler(), store
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return v
}

type viewPayload struct {
	Mode      string `json:"mode"`
	Canonical string `json:"canonical"`
	Display   string `json:"display"`
	WordCount int    `json:"word_count"`
}

func TestStatusEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	rr := do(t, h, http.MethodGet, "/api/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "\"ok\":true") || !strings.Contains(rr.Body.String(), "ROUND 0/5") {
		t.Fatalf("unexpected status payload: %s", rr.Body.String())
	}
}

func TestIndexServed(t *testing.T) {
	h, _ := newTestServer(t)
	rr := do(t, h, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "<title>promptdeck</title>") {
		t.Fatalf("unexpected index: %d", rr.Code)
	}
}

func TestPromptEditToggleAndExpand(t *testing.T) {
	h, _ := newTestServer(t)

	rr := do(t, h, http.MethodPut, "/api/prompt", map[string]string{"text": "{{place}} and {{input_box}}"})
	if rr.Code != http.StatusOK {
		t.Fatalf("edit: %d %s", rr.Code, rr.Body.String())
	}
	do(t, h, http.MethodPut, "/api/input", map[string]string{"text": "a<b"})

	rr = do(t, h, http.MethodPost, "/api/prompt/toggle", nil)
	v := decode[viewPayload](t, rr)
	if v.Mode != "unfold" || v.Display != "<u>I am at Home</u> and <u>a&lt;b</u>" {
		t.Fatalf("unexpected unfolded view: %+v", v)
	}

	rr = do(t, h, http.MethodPut, "/api/prompt", map[string]string{"text": "ignored"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 while unfolded, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/api/prompt/copy", nil)
	if got := decode[map[string]string](t, rr)["text"]; got != "I am at Home and a<b" {
		t.Fatalf("unexpected copy text: %q", got)
	}

	rr = do(t, h, http.MethodGet, "/api/prompt/expand?mode=plain", nil)
	exp := decode[map[string]any](t, rr)
	if exp["text"] != "I am at Home and a<b" || exp["word_count"] != float64(6) {
		t.Fatalf("unexpected expansion: %+v", exp)
	}

	rr = do(t, h, http.MethodPut, "/api/prompt/mode", map[string]string{"mode": "fold"})
	if v := decode[viewPayload](t, rr); v.Mode != "fold" || v.Display != "{{place}} and {{input_box}}" {
		t.Fatalf("unexpected folded view: %+v", v)
	}
}

func TestFieldEndpoints(t *testing.T) {
	h, _ := newTestServer(t)
	do(t, h, http.MethodPut, "/api/prompt", map[string]string{"text": "{{place}}"})

	rr := do(t, h, http.MethodPut, "/api/fields/place/value", map[string]string{"value": "Park"})
	if rr.Code != http.StatusOK {
		t.Fatalf("set value: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodGet, "/api/prompt/expand", nil)
	if got := decode[map[string]any](t, rr)["text"]; got != "I am at Park" {
		t.Fatalf("unexpected expansion: %v", got)
	}

	rr = do(t, h, http.MethodPut, "/api/fields/missing/value", map[string]string{"value": "x"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodPut, "/api/fields", []map[string]any{{"name": "input_box", "type": "input"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected reserved name rejection, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/api/variables", nil)
	names := decode[[]string](t, rr)
	if len(names) != 4 || names[0] != "input_box" || names[2] != "place" {
		t.Fatalf("unexpected variables: %v", names)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	h, _ := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/history/enable", map[string]int{"max_rounds": 3})
	got := decode[map[string]any](t, rr)
	if got["indicator"] != "ROUND 0/3" {
		t.Fatalf("unexpected indicator: %v", got["indicator"])
	}
	rr = do(t, h, http.MethodPut, "/api/history/max", map[string]int{"max_rounds": 0})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero max rounds, got %d", rr.Code)
	}
}

func TestRunWithoutModel(t *testing.T) {
	h, _ := newTestServer(t)
	do(t, h, http.MethodPut, "/api/input", map[string]string{"text": "hello"})

	rr := do(t, h, http.MethodPost, "/api/run", nil)
	if rr.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodPut, "/api/model", map[string]string{"provider": "nobody", "model": "x"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown provider rejection, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodPut, "/api/model", map[string]string{"provider": "deepSeek", "model": "deepseek-chat", "api_key": "k"})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "https://api.deepseek.com") {
		t.Fatalf("unexpected model response: %d %s", rr.Code, rr.Body.String())
	}
}

func TestConfigLibrary(t *testing.T) {
	h, store := newTestServer(t)
	do(t, h, http.MethodPut, "/api/prompt", map[string]string{"text": "saved {{time}}"})

	rr := do(t, h, http.MethodPost, "/api/configs", map[string]string{"name": "evening"})
	if rr.Code != http.StatusOK {
		t.Fatalf("save config: %d %s", rr.Code, rr.Body.String())
	}
	do(t, h, http.MethodPut, "/api/prompt", map[string]string{"text": "changed"})

	rr = do(t, h, http.MethodPost, "/api/configs/evening/apply", nil)
	if v := decode[viewPayload](t, rr); v.Canonical != "saved {{time}}" {
		t.Fatalf("apply did not restore prompt: %+v", v)
	}

	if rr := do(t, h, http.MethodDelete, "/api/configs/nope", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	list, err := store.ListConfigs()
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one config, got %d, %v", len(list), err)
	}
	if rr := do(t, h, http.MethodDelete, "/api/configs/"+list[0].ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/api/inputs", map[string]string{"text": "remember this"})
	if rr.Code != http.StatusOK {
		t.Fatalf("save input: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodGet, "/api/inputs", nil)
	if !strings.Contains(rr.Body.String(), "remember this") {
		t.Fatalf("unexpected inputs: %s", rr.Body.String())
	}
}

func TestExportImport(t *testing.T) {
	h, _ := newTestServer(t)
	do(t, h, http.MethodPut, "/api/prompt", map[string]string{"text": "exported {{place}}"})

	rr := do(t, h, http.MethodGet, "/api/export", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "exported {{place}}") {
		t.Fatalf("unexpected export: %d %s", rr.Code, rr.Body.String())
	}
	exported := rr.Body.Bytes()

	other, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(exported))
	rec := httptest.NewRecorder()
	other.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}

	rr = do(t, other, http.MethodGet, "/api/prompt", nil)
	if v := decode[viewPayload](t, rr); v.Canonical != "exported {{place}}" {
		t.Fatalf("import did not reload prompt: %+v", v)
	}
}
