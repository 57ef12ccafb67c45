package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kayz/promptdeck/internal/logger"
	"github.com/robfig/cron/v3"
)

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]*Job
	mu      sync.RWMutex
	timeout time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()), // Support second-level precision
		jobs:    make(map[string]*Job),
		timeout: 5 * time.Minute,
	}
}

// normalizeCron prepends "0 " to standard 5-field cron expressions
// so they work with the 6-field (with seconds) parser.
func normalizeCron(schedule string) string {
	schedule = strings.TrimSpace(schedule)
	if len(strings.Fields(schedule)) == 5 {
		return "0 " + schedule
	}
	return schedule
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("[Cron] Scheduler started with %d jobs", len(s.ListJobs()))
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("[Cron] Scheduler stopped")
}

// AddJob validates and schedules a task
func (s *Scheduler) AddJob(name, schedule string, task Task) (*Job, error) {
	if task == nil {
		return nil, fmt.Errorf("job %s has no task", name)
	}
	schedule = normalizeCron(schedule)

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Name:      name,
		Schedule:  schedule,
		Enabled:   true,
		CreatedAt: time.Now(),
		task:      task,
	}

	entryID, err := s.cron.AddFunc(job.Schedule, func() {
		s.executeJob(job)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule job: %w", err)
	}
	job.EntryID = entryID

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	logger.Info("[Cron] Job created: %s (%s) - schedule: %s", job.ID, job.Name, job.Schedule)
	return job.Clone(), nil
}

// RemoveJob removes a job from the scheduler
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	if job.EntryID != 0 {
		s.cron.Remove(job.EntryID)
	}
	delete(s.jobs, id)

	logger.Info("[Cron] Job removed: %s (%s)", job.ID, job.Name)
	return nil
}

// ListJobs returns all jobs ordered by creation time
func (s *Scheduler) ListJobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(id string) error {
	s.mu.RLock()
	job, exists := s.jobs[id]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	return s.executeJob(job)
}

// executeJob executes a job
func (s *Scheduler) executeJob(job *Job) error {
	now := time.Now()
	logger.Debug("[Cron] Running job: %s (%s)", job.ID, job.Name)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := job.task(ctx)

	s.mu.Lock()
	job.LastRun = &now
	if err != nil {
		job.LastError = err.Error()
	} else {
		job.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		logger.Error("[Cron] Job failed: %s (%s) - error: %v", job.ID, job.Name, err)
		return err
	}
	logger.Debug("[Cron] Job completed: %s (%s)", job.ID, job.Name)
	return nil
}
