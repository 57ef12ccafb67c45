package persist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kayz/promptdeck/internal/fields"
	"github.com/kayz/promptdeck/internal/history"
	"github.com/kayz/promptdeck/internal/logger"
)

const (
	keyPromptTemplate = "prompt_template"
	keySessionState   = "session_state"
	keyInputBox       = "input_box"
	keyFieldsSeeded   = "fields_seeded"

	bundleVersion = 1
)

// ErrNotFound is returned when a saved item does not exist.
var ErrNotFound = errors.New("not found")

// Store keeps the console state in SQLite: a key/value table for the
// template, session and input box, plus tables for fields, saved
// configurations, saved inputs and run logs.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewStore creates a new SQLite-backed persistence store at the given path
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db, now: time.Now}

	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

// init creates the necessary tables if they don't exist
func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key         TEXT PRIMARY KEY,
			value       TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS fields (
			position    INTEGER NOT NULL,
			name        TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			enabled     INTEGER NOT NULL DEFAULT 1,
			present     TEXT,
			value       TEXT,
			options     TEXT,
			image       TEXT
		);

		CREATE TABLE IF NOT EXISTS saved_configs (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			fields      TEXT,
			prompt      TEXT,
			input       TEXT,
			output      TEXT,
			model       TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS saved_inputs (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			text        TEXT NOT NULL,
			created_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS run_logs (
			id           TEXT PRIMARY KEY,
			timestamp    TEXT NOT NULL,
			model        TEXT,
			prompt       TEXT,
			input        TEXT,
			output       TEXT,
			history      TEXT,
			round        INTEGER NOT NULL DEFAULT 0,
			duration_ms  INTEGER NOT NULL DEFAULT 0,
			error        TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_run_logs_timestamp ON run_logs(timestamp);
	`)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetValue reads a raw key. Missing keys return "", false.
func (s *Store) GetValue(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getValueLocked(key)
}

func (s *Store) getValueLocked(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetValue writes a raw key.
func (s *Store) SetValue(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setValueLocked(key, value)
}

func (s *Store) setValueLocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
	`, key, value, formatTime(s.now()))
	return err
}

// LoadCanonicalTemplate returns the saved prompt template, or "".
func (s *Store) LoadCanonicalTemplate() string {
	v, _, err := s.GetValue(keyPromptTemplate)
	if err != nil {
		logger.Error("[Store] Failed to load prompt template: %v", err)
		return ""
	}
	return v
}

// SaveCanonicalTemplate persists the prompt template. Errors are logged.
func (s *Store) SaveCanonicalTemplate(template string) {
	if err := s.SetValue(keyPromptTemplate, template); err != nil {
		logger.Error("[Store] Failed to save prompt template: %v", err)
	}
}

// LoadSessionState returns the saved multi-round state. ok is false when
// nothing has been saved yet.
func (s *Store) LoadSessionState() (history.State, bool) {
	raw, ok, err := s.GetValue(keySessionState)
	if err != nil {
		logger.Error("[Store] Failed to load session state: %v", err)
		return history.State{}, false
	}
	if !ok {
		return history.State{}, false
	}
	var st history.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		logger.Error("[Store] Corrupt session state, ignoring: %v", err)
		return history.State{}, false
	}
	return st, true
}

// SaveSessionState persists the multi-round state. Errors are logged.
func (s *Store) SaveSessionState(st history.State) {
	data, err := json.Marshal(st)
	if err != nil {
		logger.Error("[Store] Failed to encode session state: %v", err)
		return
	}
	if err := s.SetValue(keySessionState, string(data)); err != nil {
		logger.Error("[Store] Failed to save session state: %v", err)
	}
}

func (s *Store) LoadInputBox() string {
	v, _, err := s.GetValue(keyInputBox)
	if err != nil {
		logger.Error("[Store] Failed to load input box: %v", err)
	}
	return v
}

func (s *Store) SaveInputBox(text string) {
	if err := s.SetValue(keyInputBox, text); err != nil {
		logger.Error("[Store] Failed to save input box: %v", err)
	}
}

// LoadFields returns the saved field registry. On first use the defaults are
// returned and seeded.
func (s *Store) LoadFields() ([]fields.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, seeded, err := s.getValueLocked(keyFieldsSeeded)
	if err != nil {
		return nil, err
	}
	if !seeded {
		defaults := fields.Defaults()
		if err := s.saveFieldsLocked(defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}

	rows, err := s.db.Query(`
		SELECT name, kind, enabled, present, value, options, image
		FROM fields
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fields.Field
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanField(row scanner) (fields.Field, error) {
	var f fields.Field
	var kind string
	var enabled int
	var present, value, options, image sql.NullString

	if err := row.Scan(&f.Name, &kind, &enabled, &present, &value, &options, &image); err != nil {
		return f, err
	}
	k, err := fields.ParseKind(kind)
	if err != nil {
		return f, fmt.Errorf("field %s: %w", f.Name, err)
	}
	f.Kind = k
	f.Enabled = enabled != 0
	f.Present = present.String
	f.Value = value.String
	if options.Valid {
		_ = fromJSON(options.String, &f.Options)
	}
	if image.Valid && image.String != "" && image.String != "null" {
		var img fields.Image
		if fromJSON(image.String, &img) == nil {
			f.Image = &img
		}
	}
	return f, nil
}

// SaveFields replaces the whole field table.
func (s *Store) SaveFields(list []fields.Field) error {
	if err := fields.Validate(list); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveFieldsLocked(list)
}

func (s *Store) saveFieldsLocked(list []fields.Field) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM fields`); err != nil {
		return err
	}
	for i, f := range list {
		var image any
		if f.Image != nil {
			image = toJSON(f.Image)
		}
		var options any
		if f.Options != nil {
			options = toJSON(f.Options)
		}
		_, err := tx.Exec(`
			INSERT INTO fields (position, name, kind, enabled, present, value, options, image)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, i, strings.TrimSpace(f.Name), f.Kind.String(), boolToInt(f.Enabled), f.Present, f.Value, options, image)
		if err != nil {
			return fmt.Errorf("insert field %s: %w", f.Name, err)
		}
	}
	if _, err := tx.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, '1', ?)
		ON CONFLICT(key) DO UPDATE SET updated_at=excluded.updated_at
	`, keyFieldsSeeded, formatTime(s.now())); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveConfig inserts or updates a saved configuration, keyed by name. A new ID
// is assigned when the name is new.
func (s *Store) SaveConfig(cfg *SavedConfig) error {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return fmt.Errorf("config name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var existingID, createdAt string
	err := s.db.QueryRow(`SELECT id, created_at FROM saved_configs WHERE name = ?`, name).Scan(&existingID, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if cfg.ID == "" {
			cfg.ID = uuid.New().String()
		}
		cfg.CreatedAt = now
	case err != nil:
		return err
	default:
		cfg.ID = existingID
		cfg.CreatedAt = parseTime(createdAt)
	}
	cfg.Name = name
	cfg.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO saved_configs (id, name, fields, prompt, input, output, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, fields=excluded.fields, prompt=excluded.prompt,
			input=excluded.input, output=excluded.output, model=excluded.model,
			updated_at=excluded.updated_at
	`, cfg.ID, cfg.Name, toJSON(cfg.Fields), cfg.Prompt, cfg.Input, cfg.Output, toJSON(cfg.Model),
		formatTime(cfg.CreatedAt), formatTime(cfg.UpdatedAt))
	return err
}

const savedConfigColumns = `id, name, fields, prompt, input, output, model, created_at, updated_at`

func scanConfig(row scanner) (*SavedConfig, error) {
	var cfg SavedConfig
	var fieldsJSON, prompt, input, output, model sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&cfg.ID, &cfg.Name, &fieldsJSON, &prompt, &input, &output, &model, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if fieldsJSON.Valid {
		if err := fromJSON(fieldsJSON.String, &cfg.Fields); err != nil {
			return nil, fmt.Errorf("config %s fields: %w", cfg.Name, err)
		}
	}
	if model.Valid {
		_ = fromJSON(model.String, &cfg.Model)
	}
	cfg.Prompt = prompt.String
	cfg.Input = input.String
	cfg.Output = output.String
	cfg.CreatedAt = parseTime(createdAt)
	cfg.UpdatedAt = parseTime(updatedAt)
	return &cfg, nil
}

// GetConfig looks a saved configuration up by ID or name.
func (s *Store) GetConfig(idOrName string) (*SavedConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+savedConfigColumns+` FROM saved_configs WHERE id = ? OR name = ?`, idOrName, idOrName)
	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config %s: %w", idOrName, ErrNotFound)
	}
	return cfg, err
}

// ListConfigs returns saved configurations ordered by name.
func (s *Store) ListConfigs() ([]*SavedConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT ` + savedConfigColumns + ` FROM saved_configs ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SavedConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func (s *Store) DeleteConfig(id string) error {
	return s.deleteByID("saved_configs", id)
}

// SaveInput stores a reusable input text.
func (s *Store) SaveInput(in *SavedInput) error {
	if strings.TrimSpace(in.Text) == "" {
		return fmt.Errorf("input text is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if strings.TrimSpace(in.Name) == "" {
		in.Name = summarize(in.Text, 30)
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = s.now()
	}
	_, err := s.db.Exec(`
		INSERT INTO saved_inputs (id, name, text, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, text=excluded.text
	`, in.ID, in.Name, in.Text, formatTime(in.CreatedAt))
	return err
}

// ListInputs returns saved inputs, newest first.
func (s *Store) ListInputs() ([]*SavedInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, name, text, created_at FROM saved_inputs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SavedInput
	for rows.Next() {
		var in SavedInput
		var createdAt string
		if err := rows.Scan(&in.ID, &in.Name, &in.Text, &createdAt); err != nil {
			return nil, err
		}
		in.CreatedAt = parseTime(createdAt)
		out = append(out, &in)
	}
	return out, rows.Err()
}

func (s *Store) DeleteInput(id string) error {
	return s.deleteByID("saved_inputs", id)
}

// AddRunLog records one model call.
func (s *Store) AddRunLog(log *RunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = s.now()
	}
	_, err := s.db.Exec(`
		INSERT INTO run_logs (id, timestamp, model, prompt, input, output, history, round, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.ID, formatTime(log.Timestamp), toJSON(log.Model), log.Prompt, log.Input, log.Output,
		log.History, log.Round, log.DurationMS, log.Error)
	return err
}

// ListRunLogs returns the newest logs first. limit <= 0 means 50.
func (s *Store) ListRunLogs(limit int) ([]*RunLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, timestamp, model, prompt, input, output, history, round, duration_ms, error
		FROM run_logs
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RunLog
	for rows.Next() {
		var l RunLog
		var ts string
		var model, prompt, input, output, hist, errText sql.NullString
		if err := rows.Scan(&l.ID, &ts, &model, &prompt, &input, &output, &hist, &l.Round, &l.DurationMS, &errText); err != nil {
			return nil, err
		}
		l.Timestamp = parseTime(ts)
		if model.Valid {
			_ = fromJSON(model.String, &l.Model)
		}
		l.Prompt = prompt.String
		l.Input = input.String
		l.Output = output.String
		l.History = hist.String
		l.Error = errText.String
		out = append(out, &l)
	}
	return out, rows.Err()
}

// PruneRunLogs deletes logs older than cutoff and reports how many went.
func (s *Store) PruneRunLogs(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM run_logs WHERE timestamp < ?`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) ClearRunLogs() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM run_logs`)
	return err
}

func (s *Store) deleteByID(table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	return nil
}

// Export writes the template, fields, saved configurations and inputs as JSON.
func (s *Store) Export(w io.Writer) error {
	flds, err := s.LoadFields()
	if err != nil {
		return fmt.Errorf("export fields: %w", err)
	}
	configs, err := s.ListConfigs()
	if err != nil {
		return fmt.Errorf("export configs: %w", err)
	}
	inputs, err := s.ListInputs()
	if err != nil {
		return fmt.Errorf("export inputs: %w", err)
	}

	b := Bundle{
		Version:    bundleVersion,
		ExportedAt: s.now().UTC(),
		Prompt:     s.LoadCanonicalTemplate(),
		Fields:     flds,
	}
	for _, c := range configs {
		b.Configs = append(b.Configs, *c)
	}
	for _, in := range inputs {
		b.Inputs = append(b.Inputs, *in)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// Import merges a bundle: fields and template replace the current ones when
// present, configurations and inputs are upserted.
func (s *Store) Import(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if b.Version > bundleVersion {
		return nil, fmt.Errorf("unsupported bundle version %d", b.Version)
	}
	if len(b.Fields) > 0 {
		if err := s.SaveFields(b.Fields); err != nil {
			return nil, fmt.Errorf("import fields: %w", err)
		}
	}
	if b.Prompt != "" {
		s.SaveCanonicalTemplate(b.Prompt)
	}
	for i := range b.Configs {
		if err := fields.Validate(b.Configs[i].Fields); err != nil {
			return nil, fmt.Errorf("import config %s: %w", b.Configs[i].Name, err)
		}
		if err := s.SaveConfig(&b.Configs[i]); err != nil {
			return nil, fmt.Errorf("import config %s: %w", b.Configs[i].Name, err)
		}
	}
	for i := range b.Inputs {
		if err := s.SaveInput(&b.Inputs[i]); err != nil {
			return nil, fmt.Errorf("import input: %w", err)
		}
	}
	logger.Info("[Store] Imported %d configs, %d inputs", len(b.Configs), len(b.Inputs))
	return &b, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func summarize(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
