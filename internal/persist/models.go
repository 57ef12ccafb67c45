package persist

import (
	"encoding/json"
	"time"

	"github.com/kayz/promptdeck/internal/fields"
)

// ModelSnapshot records which model a configuration or run used.
type ModelSnapshot struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	APIURL      string  `json:"api_url,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
}

// SavedConfig is a named snapshot of the whole console: fields, template,
// input, last output and model.
type SavedConfig struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Fields    []fields.Field `json:"fields"`
	Prompt    string         `json:"prompt"`
	Input     string         `json:"input,omitempty"`
	Output    string         `json:"output,omitempty"`
	Model     ModelSnapshot  `json:"model"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SavedInput is a reusable input box text.
type SavedInput struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// RunLog is one model call.
type RunLog struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Model      ModelSnapshot `json:"model"`
	Prompt     string        `json:"prompt"`
	Input      string        `json:"input"`
	Output     string        `json:"output"`
	History    string        `json:"history,omitempty"`
	Round      int           `json:"round"`
	DurationMS int64         `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
}

// Bundle is the import/export document.
type Bundle struct {
	Version    int            `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Prompt     string         `json:"prompt,omitempty"`
	Fields     []fields.Field `json:"fields,omitempty"`
	Configs    []SavedConfig  `json:"configs,omitempty"`
	Inputs     []SavedInput   `json:"inputs,omitempty"`
}

// scanner interface for both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// toJSON converts an object to JSON string
func toJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// fromJSON parses JSON string into an object
func fromJSON(data string, v interface{}) error {
	if data == "" || data == "[]" || data == "null" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
