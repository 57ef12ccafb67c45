package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kayz/promptdeck/internal/ai"
	"github.com/kayz/promptdeck/internal/fields"
	"github.com/kayz/promptdeck/internal/logger"
	"github.com/kayz/promptdeck/internal/persist"
	"github.com/kayz/promptdeck/internal/promptbuild"
)

// HistoryAppender receives every successful round.
type HistoryAppender interface {
	Append(input, output string)
}

// RunLogger stores run logs.
type RunLogger interface {
	AddRunLog(log *persist.RunLog) error
}

type RunnerConfig struct {
	Provider    Provider
	Model       persist.ModelSnapshot
	Catalog     *ai.Registry
	History     HistoryAppender
	Logs        RunLogger
	Auditor     *promptbuild.Auditor
	TestMessage string
}

// Runner sends the expanded prompt to a model and records the round.
type Runner struct {
	provider Provider
	model    persist.ModelSnapshot
	catalog  *ai.Registry
	history  HistoryAppender
	logs     RunLogger
	auditor  *promptbuild.Auditor
	testMsg  string
	now      func() time.Time
}

func NewRunner(cfg RunnerConfig) *Runner {
	testMsg := cfg.TestMessage
	if testMsg == "" {
		testMsg = "Hello, please respond with a short confirmation."
	}
	return &Runner{
		provider: cfg.Provider,
		model:    cfg.Model,
		catalog:  cfg.Catalog,
		history:  cfg.History,
		logs:     cfg.Logs,
		auditor:  cfg.Auditor,
		testMsg:  testMsg,
		now:      time.Now,
	}
}

// Model returns the model snapshot the runner was built with.
func (r *Runner) Model() persist.ModelSnapshot { return r.model }

// Job is a snapshot of everything a run needs, taken by the caller.
type Job struct {
	Template string
	Sources  promptbuild.Sources
	Fields   []fields.Field
	Round    int
}

// Result describes a finished run.
type Result struct {
	Output   string        `json:"output"`
	Mode     string        `json:"mode"`
	Round    int           `json:"round"`
	Duration time.Duration `json:"duration"`
}

// Run performs one model call. The round is appended to history only when the
// call succeeds; a cancelled context leaves history untouched.
func (r *Runner) Run(ctx context.Context, job Job) (Result, error) {
	if r.provider == nil {
		return Result{}, ErrNoProvider
	}

	built, err := BuildMessages(job.Template, job.Sources)
	if err != nil {
		return Result{}, err
	}

	images := ImagesFromFields(job.Fields)
	if len(images) > 0 && !r.supportsImages() {
		logger.Warn("[Runner] Model %s does not accept images, dropping %d attachment(s)", r.model.Model, len(images))
		images = nil
	}

	req := built.Request(images, r.model.MaxTokens, r.model.Temperature)
	logger.Info("[Runner] Calling %s/%s (mode: %s, images: %d)", r.provider.Name(), r.model.Model, built.Mode, len(images))

	start := r.now()
	resp, err := r.provider.Chat(ctx, req)
	elapsed := r.now().Sub(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Info("[Runner] Run cancelled")
			return Result{}, ctxErr
		}
		logger.Error("[Runner] Model call failed: %v", err)
		r.record(job, built, "", elapsed, err)
		return Result{}, err
	}

	if r.history != nil {
		r.history.Append(built.Input, resp.Content)
	}
	r.record(job, built, resp.Content, elapsed, nil)
	r.audit(job, built)

	logger.Info("[Runner] Done in %s (%d in / %d out tokens)", elapsed.Round(time.Millisecond), resp.InputTokens, resp.OutputTokens)
	return Result{
		Output:   resp.Content,
		Mode:     built.Mode,
		Round:    job.Round,
		Duration: elapsed,
	}, nil
}

// Test sends a short fixed message to check the configuration.
func (r *Runner) Test(ctx context.Context) (string, error) {
	if r.provider == nil {
		return "", ErrNoProvider
	}
	resp, err := r.provider.Chat(ctx, ChatRequest{
		Messages:    []Message{{Role: "user", Content: r.testMsg}},
		MaxTokens:   64,
		Temperature: r.model.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("test %s/%s: %w", r.provider.Name(), r.model.Model, err)
	}
	if resp.Content == "" {
		return "", errors.New("test returned an empty response")
	}
	return resp.Content, nil
}

func (r *Runner) supportsImages() bool {
	if r.catalog == nil {
		return false
	}
	return r.catalog.SupportsImages(r.model.Provider, r.model.Model)
}

func (r *Runner) record(job Job, built Built, output string, elapsed time.Duration, runErr error) {
	if r.logs == nil {
		return
	}
	entry := &persist.RunLog{
		Timestamp:  r.now(),
		Model:      r.model,
		Prompt:     firstNonEmpty(built.SystemPrompt, built.UserMessage),
		Input:      built.Input,
		Output:     output,
		History:    job.Sources.History(),
		Round:      job.Round,
		DurationMS: elapsed.Milliseconds(),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	if err := r.logs.AddRunLog(entry); err != nil {
		logger.Error("[Runner] Failed to save run log: %v", err)
	}
}

func (r *Runner) audit(job Job, built Built) {
	err := r.auditor.Record(promptbuild.AuditEntry{
		Provider:     r.model.Provider,
		Model:        r.model.Model,
		MessageMode:  built.Mode,
		Template:     job.Template,
		SystemPrompt: built.SystemPrompt,
		UserInput:    built.UserMessage,
		Round:        job.Round,
	})
	if err != nil {
		logger.Warn("[Runner] Failed to write audit record: %v", err)
	}
}
