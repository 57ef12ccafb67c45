package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kayz/promptdeck/internal/agent"
	"github.com/kayz/promptdeck/internal/fields"
	"github.com/kayz/promptdeck/internal/history"
	"github.com/kayz/promptdeck/internal/logger"
	"github.com/kayz/promptdeck/internal/persist"
)

// HistoryState returns the multi-round session state.
func (c *Console) HistoryState() history.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.State()
}

func (c *Console) FormattedHistory() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Formatted()
}

func (c *Console) Indicator() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Indicator()
}

func (c *Console) EnableMultiRound(maxRounds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Enable(maxRounds)
}

func (c *Console) DisableMultiRound() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Disable()
}

func (c *Console) ResetHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Reset()
}

func (c *Console) SetMaxRounds(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.SetMaxRounds(n)
}

// lockedHistory appends rounds produced by a run, which completes outside the
// console lock.
type lockedHistory struct {
	c *Console
}

func (h lockedHistory) Append(input, output string) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	h.c.history.Append(input, output)
}

// ConfigureRunner installs the model runner. Successful runs append to this
// console's history.
func (c *Console) ConfigureRunner(cfg agent.RunnerConfig) {
	cfg.History = lockedHistory{c}
	r := agent.NewRunner(cfg)

	c.mu.Lock()
	c.runner = r
	c.mu.Unlock()
}

// UseModel connects the console to a model. Missing token limits and
// temperature come from the catalog.
func (c *Console) UseModel(model persist.ModelSnapshot, apiKey string) error {
	provider, err := agent.NewProvider(agent.ProviderOptions{
		Provider: model.Provider,
		Model:    model.Model,
		APIURL:   model.APIURL,
		APIKey:   apiKey,
	}, c.catalog)
	if err != nil {
		return err
	}
	if c.catalog != nil {
		info := c.catalog.ModelInfo(model.Provider, model.Model)
		if model.MaxTokens <= 0 {
			model.MaxTokens = info.MaxTokens
		}
		if model.Temperature <= 0 {
			model.Temperature = info.Temperature
		}
		if model.APIURL == "" {
			if p, ok := c.catalog.GetProvider(model.Provider); ok {
				model.APIURL = p.BaseURL
			}
		}
	}

	c.ConfigureRunner(agent.RunnerConfig{
		Provider: provider,
		Model:    model,
		Catalog:  c.catalog,
		Logs:     c.logs,
		Auditor:  c.auditor,
	})
	logger.Info("[Console] Using %s/%s", model.Provider, model.Model)
	return nil
}

// Model returns the configured model, if any.
func (c *Console) Model() (persist.ModelSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner == nil {
		return persist.ModelSnapshot{}, false
	}
	return c.runner.Model(), true
}

// Running reports whether a model call is in flight.
func (c *Console) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Run sends the current prompt and input to the model. Only one run may be in
// flight at a time.
func (c *Console) Run(ctx context.Context) (agent.Result, error) {
	c.mu.Lock()
	if c.runner == nil {
		c.mu.Unlock()
		return agent.Result{}, agent.ErrNoProvider
	}
	if c.running {
		c.mu.Unlock()
		return agent.Result{}, ErrRunInProgress
	}

	round := 0
	if c.history.IsEnabled() {
		round = c.history.CurrentRound() + 1
	}
	job := agent.Job{
		Template: c.ctrl.Canonical(),
		Sources:  c.snapshotLocked(),
		Fields:   c.registry.Snapshot(),
		Round:    round,
	}
	runner := c.runner
	ctx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancelRun = cancel
	c.mu.Unlock()

	res, err := runner.Run(ctx, job)
	cancel()

	c.mu.Lock()
	c.running = false
	c.cancelRun = nil
	if err == nil {
		c.lastOutput = res.Output
	}
	c.mu.Unlock()

	return res, err
}

// Cancel aborts the in-flight run. It reports whether there was one.
func (c *Console) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelRun == nil {
		return false
	}
	c.cancelRun()
	logger.Info("[Console] Run cancelled by user")
	return true
}

// TestModel checks the configured model with a short request.
func (c *Console) TestModel(ctx context.Context) (string, error) {
	c.mu.Lock()
	runner := c.runner
	c.mu.Unlock()
	if runner == nil {
		return "", agent.ErrNoProvider
	}
	return runner.Test(ctx)
}

// SaveAs captures the session as a named configuration.
func (c *Console) SaveAs(name string) *persist.SavedConfig {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := &persist.SavedConfig{
		Name:   strings.TrimSpace(name),
		Fields: c.registry.Snapshot(),
		Prompt: c.ctrl.Canonical(),
		Input:  c.input,
		Output: c.lastOutput,
	}
	if c.runner != nil {
		cfg.Model = c.runner.Model()
	}
	return cfg
}

// Apply loads a saved configuration into the session.
func (c *Console) Apply(cfg *persist.SavedConfig) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.reloadLocked(cfg.Prompt, cfg.Fields); err != nil {
		return fmt.Errorf("apply %s: %w", cfg.Name, err)
	}
	c.input = cfg.Input
	c.store.SaveInputBox(cfg.Input)
	c.lastOutput = cfg.Output
	c.ctrl.Refresh()
	logger.Info("[Console] Applied configuration %s", cfg.Name)
	return nil
}

// Reload replaces the template and fields, for example after an import.
func (c *Console) Reload(template string, list []fields.Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked(template, list)
}

func (c *Console) reloadLocked(template string, list []fields.Field) error {
	if err := c.registry.Replace(list); err != nil {
		return err
	}
	if err := c.store.SaveFields(c.registry.Snapshot()); err != nil {
		return err
	}
	c.ctrl.Reload(template)
	return nil
}
