package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kayz/promptdeck/internal/promptbuild"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "promptdeck.yaml")
	body := "port: 19090\n" +
		"store:\n  path: " + filepath.Join(dir, "deck.db") + "\n" +
		"ai:\n  provider: deepSeek\n  model: deepseek-chat\n" +
		"retention:\n  schedule: \"@daily\"\n  log_days: 7\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func resetFlags(t *testing.T) {
	t.Helper()
	t.Setenv("PROMPTDECK_API_KEY", "")
	t.Setenv("PROMPTDECK_PROVIDER", "")
	t.Setenv("PROMPTDECK_MODEL", "")
	t.Cleanup(func() {
		configPath, aiProvider, aiModel, aiAPIKey, aiBaseURL = "", "", "", "", ""
	})
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	resetFlags(t)
	configPath = writeTestConfig(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != 19090 || cfg.AI.Provider != "deepSeek" {
		t.Fatalf("config file not applied: %+v", cfg)
	}

	aiProvider = " claude "
	aiModel = "claude-sonnet-4-5"
	aiAPIKey = "sk-test"
	aiBaseURL = "http://localhost:9999"
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.AI.Provider != "claude" || cfg.AI.Model != "claude-sonnet-4-5" {
		t.Fatalf("flags not applied: %+v", cfg.AI)
	}
	if cfg.AI.APIKey != "sk-test" || cfg.AI.APIURL != "http://localhost:9999" {
		t.Fatalf("flags not applied: %+v", cfg.AI)
	}
}

func TestSessionPackRoundTrip(t *testing.T) {
	resetFlags(t)
	configPath = writeTestConfig(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	sess, err := openSession(cfg)
	if err != nil {
		t.Fatalf("openSession: %v", err)
	}
	defer sess.Close()

	sess.console.Edit("Answer: {{input_box}}")
	sess.console.SetInput("why is the sky blue")

	packPath := filepath.Join(t.TempDir(), "session.yaml")
	if err := promptbuild.SavePack(packPath, sessionPack(sess, "")); err != nil {
		t.Fatalf("save pack: %v", err)
	}
	pack, err := promptbuild.LoadPack(packPath)
	if err != nil {
		t.Fatalf("load pack: %v", err)
	}
	if pack.Name != "session" {
		t.Fatalf("default pack name = %q", pack.Name)
	}

	got, err := pack.Expand(promptbuild.Plain)
	if err != nil {
		t.Fatalf("expand pack: %v", err)
	}
	if want := sess.console.Expand(promptbuild.Plain); got != want {
		t.Fatalf("pack expansion = %q, session expansion = %q", got, want)
	}
	if got != "Answer: why is the sky blue" {
		t.Fatalf("unexpected expansion %q", got)
	}
}
