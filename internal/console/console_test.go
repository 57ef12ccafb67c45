package console

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kayz/promptdeck/internal/agent"
	"github.com/kayz/promptdeck/internal/fields"
	"github.com/kayz/promptdeck/internal/persist"
	"github.com/kayz/promptdeck/internal/promptbuild"
	"github.com/kayz/promptdeck/internal/render"
)

type stubProvider struct {
	reply   string
	started chan struct{}
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Chat(ctx context.Context, req agent.ChatRequest) (agent.ChatResponse, error) {
	if p.started != nil {
		close(p.started)
		<-ctx.Done()
		return agent.ChatResponse{}, ctx.Err()
	}
	return agent.ChatResponse{Content: p.reply}, nil
}

func openStore(t *testing.T, dir string) *persist.Store {
	t.Helper()
	s, err := persist.NewStore(filepath.Join(dir, "promptdeck.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newConsole(t *testing.T, s Store) *Console {
	t.Helper()
	c, err := New(Options{Store: s, MaxRounds: 3})
	if err != nil {
		t.Fatalf("new console: %v", err)
	}
	return c
}

func TestConsoleEditAndExpand(t *testing.T) {
	c := newConsole(t, openStore(t, t.TempDir()))

	c.Edit("Where: {{place}} / {{input_box}}")
	c.SetInput("hi")

	if got := c.Expand(promptbuild.Plain); got != "Where: I am at Home / hi" {
		t.Fatalf("unexpected expansion: %q", got)
	}
	if got := c.Expand(promptbuild.Annotated); got != "Where: <u>I am at Home</u> / <u>hi</u>" {
		t.Fatalf("unexpected annotated expansion: %q", got)
	}

	v := c.Toggle()
	if v.Mode != render.Unfold || v.Editable {
		t.Fatalf("expected read-only unfold view, got %+v", v)
	}
	if v.WordCount != 7 {
		t.Fatalf("expected 7 words, got %d", v.WordCount)
	}
	v = c.Toggle()
	if v.Display != "Where: {{place}} / {{input_box}}" {
		t.Fatalf("fold did not restore template: %q", v.Display)
	}
}

func TestConsoleSiftUpdatesView(t *testing.T) {
	c := newConsole(t, openStore(t, t.TempDir()))
	c.Edit("{{place}}")

	var views []render.View
	c.OnView(func(v render.View) { views = append(views, v) })

	updated := c.Sift(map[string]string{"place": "Park", "unknown": "x"})
	if len(updated) != 1 || updated[0] != "place" {
		t.Fatalf("unexpected sift result: %v", updated)
	}
	if got := c.Expand(promptbuild.Plain); got != "I am at Park" {
		t.Fatalf("unexpected expansion: %q", got)
	}
	if len(views) == 0 {
		t.Fatalf("expected a view refresh")
	}
	if c.Sift(map[string]string{"unknown": "x"}) != nil {
		t.Fatalf("expected no updates")
	}
}

func TestConsoleRestoresSession(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	c := newConsole(t, s)

	c.Edit("{{time}} {{input_box}}")
	c.SetInput("saved input")
	if err := c.SetFieldValue("time", "07:30"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	c.EnableMultiRound(4)

	again := newConsole(t, s)
	if got := again.View().Canonical; got != "{{time}} {{input_box}}" {
		t.Fatalf("template not restored: %q", got)
	}
	if got := again.Expand(promptbuild.Plain); got != "Now, it's 07:30 saved input" {
		t.Fatalf("unexpected restored expansion: %q", got)
	}
	st := again.HistoryState()
	if !st.MultiRoundEnabled || st.MaxRounds != 4 {
		t.Fatalf("history state not restored: %+v", st)
	}
}

func TestConsoleRunAppendsHistory(t *testing.T) {
	s := openStore(t, t.TempDir())
	c := newConsole(t, s)
	c.Edit("{{short_history}}\n{{input_box}}")
	c.EnableMultiRound(3)
	c.SetInput("question")

	c.ConfigureRunner(agent.RunnerConfig{
		Provider: &stubProvider{reply: "answer"},
		Model:    persist.ModelSnapshot{Provider: "openAI", Model: "gpt-4.1"},
		Logs:     s,
	})

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Round != 1 || res.Output != "answer" || c.LastOutput() != "answer" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if c.Indicator() != "ROUND 1/3" {
		t.Fatalf("unexpected indicator: %s", c.Indicator())
	}
	if !strings.HasPrefix(c.Expand(promptbuild.Plain), "ROUND 1:\nInput: question\nOutput: answer") {
		t.Fatalf("history not expanded: %q", c.Expand(promptbuild.Plain))
	}

	logs, err := s.ListRunLogs(10)
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one run log, got %d, %v", len(logs), err)
	}
}

func TestConsoleSingleRunAndCancel(t *testing.T) {
	c := newConsole(t, openStore(t, t.TempDir()))
	c.SetInput("x")

	if _, err := c.Run(context.Background()); !errors.Is(err, agent.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
	if c.Cancel() {
		t.Fatalf("cancel without a run should report false")
	}

	p := &stubProvider{started: make(chan struct{})}
	c.ConfigureRunner(agent.RunnerConfig{Provider: p})

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background())
		done <- err
	}()

	select {
	case <-p.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not start")
	}
	if _, err := c.Run(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if !c.Cancel() {
		t.Fatalf("expected cancel to find the run")
	}
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if c.Running() {
		t.Fatalf("run flag not cleared")
	}
}

func TestConsoleSaveAsAndApply(t *testing.T) {
	s := openStore(t, t.TempDir())
	c := newConsole(t, s)
	c.Edit("{{mood}}: {{input_box}}")
	c.SetInput("first")

	custom := []fields.Field{{Name: "mood", Kind: fields.KindFreeText, Enabled: true, Present: "Feeling {{input}}", Value: "calm"}}
	if err := c.ReplaceFields(custom); err != nil {
		t.Fatalf("replace fields: %v", err)
	}

	snap := c.SaveAs("  calm  ")
	if snap.Name != "calm" || snap.Prompt != "{{mood}}: {{input_box}}" || len(snap.Fields) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if err := s.SaveConfig(snap); err != nil {
		t.Fatalf("save config: %v", err)
	}

	c.Edit("changed")
	if err := c.ReplaceFields(fields.Defaults()); err != nil {
		t.Fatalf("replace fields: %v", err)
	}

	loaded, err := s.GetConfig("calm")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if err := c.Apply(loaded); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := c.Expand(promptbuild.Plain); got != "Feeling calm: first" {
		t.Fatalf("unexpected expansion after apply: %q", got)
	}
	if c.View().Mode != render.Fold {
		t.Fatalf("apply should return to fold")
	}
	if err := c.Apply(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
