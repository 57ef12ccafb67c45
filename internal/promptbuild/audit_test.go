package promptbuild

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kayz/promptdeck/internal/config"
)

func TestAuditorRecordAppendsSameDay(t *testing.T) {
	dir := t.TempDir()
	a := NewAuditor(config.AuditConfig{
		Enabled:       true,
		Dir:           filepath.Join(dir, "audit"),
		RetentionDays: 7,
		FilePrefix:    "promptdeck",
	})
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	entry := AuditEntry{Provider: "openAI", Model: "gpt-4.1-mini", MessageMode: "legacy", Template: "{{input_box}}", UserInput: "first", Round: 1}
	if err := a.Record(entry); err != nil {
		t.Fatalf("write first audit record: %v", err)
	}
	entry.UserInput = "second"
	entry.Round = 2
	if err := a.Record(entry); err != nil {
		t.Fatalf("write second audit record: %v", err)
	}

	auditFile := filepath.Join(dir, "audit", "promptdeck-2026-03-01.jsonl")
	data, err := os.ReadFile(auditFile)
	if err != nil {
		t.Fatalf("read audit file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit lines, got %d", len(lines))
	}

	var rec auditRecord
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatalf("unmarshal second line: %v", err)
	}
	if rec.Timestamp == "" || rec.TemplateDigest == "" {
		t.Fatalf("expected timestamp and template_digest to be set")
	}
	if rec.UserInput != "second" || rec.Round != 2 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestAuditorDisabledWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	a := NewAuditor(config.AuditConfig{Enabled: false, Dir: dir})
	if err := a.Record(AuditEntry{UserInput: "x"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected no audit dir, stat err = %v", err)
	}

	var nilAuditor *Auditor
	if err := nilAuditor.Record(AuditEntry{}); err != nil {
		t.Fatalf("nil auditor record: %v", err)
	}
}

func TestCleanupOldAuditFilesByDateAndModTime(t *testing.T) {
	dir := t.TempDir()
	auditDir := filepath.Join(dir, "audit")
	if err := os.MkdirAll(auditDir, 0755); err != nil {
		t.Fatalf("mkdir audit dir: %v", err)
	}

	now := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	prefix := "promptdeck"

	oldByName := filepath.Join(auditDir, prefix+"-2026-02-18.jsonl")
	if err := os.WriteFile(oldByName, []byte("old"), 0644); err != nil {
		t.Fatalf("write old-by-name file: %v", err)
	}

	newByName := filepath.Join(auditDir, prefix+"-2026-02-26.jsonl")
	if err := os.WriteFile(newByName, []byte("new"), 0644); err != nil {
		t.Fatalf("write new-by-name file: %v", err)
	}

	fallbackOld := filepath.Join(auditDir, prefix+"-not-a-date.jsonl")
	if err := os.WriteFile(fallbackOld, []byte("fallback"), 0644); err != nil {
		t.Fatalf("write fallback file: %v", err)
	}
	oldModTime := now.AddDate(0, 0, -10)
	if err := os.Chtimes(fallbackOld, oldModTime, oldModTime); err != nil {
		t.Fatalf("set fallback old modtime: %v", err)
	}

	unrelated := filepath.Join(auditDir, "other-2026-01-01.jsonl")
	if err := os.WriteFile(unrelated, []byte("keep"), 0644); err != nil {
		t.Fatalf("write unrelated file: %v", err)
	}

	a := NewAuditor(config.AuditConfig{
		Enabled:       true,
		Dir:           auditDir,
		RetentionDays: 7,
		FilePrefix:    prefix,
	})

	if err := a.cleanupOldFilesWithNow(now); err != nil {
		t.Fatalf("cleanup old audit files: %v", err)
	}

	if _, err := os.Stat(oldByName); !os.IsNotExist(err) {
		t.Fatalf("expected old-by-name file removed")
	}
	if _, err := os.Stat(newByName); err != nil {
		t.Fatalf("expected new-by-name file kept: %v", err)
	}
	if _, err := os.Stat(fallbackOld); !os.IsNotExist(err) {
		t.Fatalf("expected fallback old-modtime file removed")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("expected unrelated file kept: %v", err)
	}
}
