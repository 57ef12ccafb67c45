package promptbuild

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kayz/promptdeck/internal/config"
)

var auditMu sync.Mutex

// AuditEntry describes one prompt sent to a model.
type AuditEntry struct {
	Provider     string
	Model        string
	MessageMode  string
	Template     string
	SystemPrompt string
	UserInput    string
	Round        int
}

type auditRecord struct {
	Timestamp      string `json:"timestamp"`
	TemplateDigest string `json:"template_digest"`
	Provider       string `json:"provider,omitempty"`
	Model          string `json:"model,omitempty"`
	MessageMode    string `json:"message_mode"`
	SystemPrompt   string `json:"system_prompt,omitempty"`
	UserInput      string `json:"user_input"`
	Round          int    `json:"round"`
}

// Auditor appends expanded prompts to daily JSONL files.
type Auditor struct {
	cfg config.AuditConfig
	now func() time.Time
}

func NewAuditor(cfg config.AuditConfig) *Auditor {
	if strings.TrimSpace(cfg.FilePrefix) == "" {
		cfg.FilePrefix = "promptdeck"
	}
	return &Auditor{cfg: cfg, now: time.Now}
}

// Record writes one audit line and prunes expired files. Disabled auditors do
// nothing.
func (a *Auditor) Record(entry AuditEntry) error {
	if a == nil || !a.cfg.Enabled {
		return nil
	}

	if err := os.MkdirAll(a.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	now := a.now()
	fileName := fmt.Sprintf("%s-%s.jsonl", a.cfg.FilePrefix, now.Format("2006-01-02"))
	filePath := filepath.Join(a.cfg.Dir, fileName)

	record := auditRecord{
		Timestamp:      now.Format(time.RFC3339),
		TemplateDigest: templateDigest(entry.Template),
		Provider:       entry.Provider,
		Model:          entry.Model,
		MessageMode:    entry.MessageMode,
		SystemPrompt:   entry.SystemPrompt,
		UserInput:      entry.UserInput,
		Round:          entry.Round,
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if err := appendJSONL(filePath, line); err != nil {
		return err
	}

	return a.cleanupOldFilesWithNow(now)
}

func appendJSONL(filePath string, line []byte) error {
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit file: %w", err)
	}
	return nil
}

// CleanupOldFiles removes audit files past the retention window.
func (a *Auditor) CleanupOldFiles() error {
	if a == nil {
		return nil
	}
	auditMu.Lock()
	defer auditMu.Unlock()
	return a.cleanupOldFilesWithNow(a.now())
}

func (a *Auditor) cleanupOldFilesWithNow(now time.Time) error {
	if a == nil || !a.cfg.Enabled || a.cfg.RetentionDays <= 0 {
		return nil
	}

	entries, err := os.ReadDir(a.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list audit dir: %w", err)
	}

	prefix := a.cfg.FilePrefix
	cutoff := now.AddDate(0, 0, -a.cfg.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl") {
			continue
		}

		filePath := filepath.Join(a.cfg.Dir, name)
		fileDate, ok := parseAuditDate(name, prefix)
		if ok {
			if fileDate.Before(startOfDay(cutoff)) {
				if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove old audit file %s: %w", filePath, err)
				}
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat audit file %s: %w", filePath, err)
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove old audit file %s: %w", filePath, err)
			}
		}
	}

	return nil
}

func parseAuditDate(filename, prefix string) (time.Time, bool) {
	raw := strings.TrimSuffix(filename, ".jsonl")
	raw = strings.TrimPrefix(raw, prefix+"-")
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func templateDigest(template string) string {
	sum := sha256.Sum256([]byte(template))
	return hex.EncodeToString(sum[:])
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
