package cmd

import (
	"fmt"

	"github.com/kayz/promptdeck/internal/ai"
	"github.com/kayz/promptdeck/internal/config"
	"github.com/kayz/promptdeck/internal/console"
	cronpkg "github.com/kayz/promptdeck/internal/cron"
	"github.com/kayz/promptdeck/internal/logger"
	"github.com/kayz/promptdeck/internal/persist"
	"github.com/kayz/promptdeck/internal/promptbuild"
)

// session is everything a long-running command needs.
type session struct {
	cfg       *config.Config
	store     *persist.Store
	catalog   *ai.Registry
	auditor   *promptbuild.Auditor
	console   *console.Console
	scheduler *cronpkg.Scheduler
}

// openSession restores the saved console. The model is connected when the
// config names one; a missing key is not fatal so the UI can still be used.
func openSession(cfg *config.Config) (*session, error) {
	store, err := persist.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	catalog, err := ai.LoadRegistry()
	if err != nil {
		logger.Warn("[Session] Failed to load provider overrides, using built-ins: %v", err)
		catalog = ai.NewRegistry()
	}

	auditor := promptbuild.NewAuditor(cfg.Audit)

	c, err := console.New(console.Options{
		Store:             store,
		MultiRoundEnabled: cfg.MultiRound.Enabled,
		MaxRounds:         cfg.MultiRound.MaxRounds,
		Catalog:           catalog,
		Logs:              store,
		Auditor:           auditor,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("restore console: %w", err)
	}

	s := &session{
		cfg:     cfg,
		store:   store,
		catalog: catalog,
		auditor: auditor,
		console: c,
	}
	s.connectModel()
	return s, nil
}

func (s *session) connectModel() {
	aiCfg := s.cfg.AI
	if aiCfg.Provider == "" || aiCfg.Model == "" {
		logger.Info("[Session] No model configured")
		return
	}
	if aiCfg.APIKey == "" {
		logger.Warn("[Session] No API key for %s, set PROMPTDECK_API_KEY or --api-key", aiCfg.Provider)
	}
	err := s.console.UseModel(persist.ModelSnapshot{
		Provider:    aiCfg.Provider,
		Model:       aiCfg.Model,
		APIURL:      aiCfg.APIURL,
		MaxTokens:   aiCfg.MaxTokens,
		Temperature: aiCfg.Temperature,
	}, aiCfg.APIKey)
	if err != nil {
		logger.Warn("[Session] Model not connected: %v", err)
	}
}

// startRetention schedules pruning of run logs and audit files.
func (s *session) startRetention() {
	sched := cronpkg.NewScheduler()
	task := cronpkg.RetentionTask(s.store, s.cfg.Retention.LogDays, s.auditor)
	if _, err := sched.AddJob("retention", s.cfg.Retention.Schedule, task); err != nil {
		logger.Warn("[Session] Retention disabled: %v", err)
		return
	}
	sched.Start()
	s.scheduler = sched
}

func (s *session) Close() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.console.Cancel()
	if err := s.store.Close(); err != nil {
		logger.Error("[Session] Failed to close store: %v", err)
	}
}
