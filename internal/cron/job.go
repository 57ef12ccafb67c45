package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is the work a job performs.
type Task func(ctx context.Context) error

// Job represents a scheduled task
type Job struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"` // Cron expression or descriptor such as @daily
	Enabled   bool       `json:"enabled"`
	CreatedAt time.Time  `json:"created_at"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`

	// Runtime fields
	EntryID cron.EntryID `json:"-"`
	task    Task
}

// Clone creates a copy of the job without its task
func (j *Job) Clone() *Job {
	clone := &Job{
		ID:        j.ID,
		Name:      j.Name,
		Schedule:  j.Schedule,
		Enabled:   j.Enabled,
		CreatedAt: j.CreatedAt,
		LastError: j.LastError,
		EntryID:   j.EntryID,
	}
	if j.LastRun != nil {
		lastRun := *j.LastRun
		clone.LastRun = &lastRun
	}
	return clone
}
