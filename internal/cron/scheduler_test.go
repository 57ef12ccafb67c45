package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNormalizeCron(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"*/5 * * * *", "0 */5 * * * *"},
		{"30 0 3 * * *", "30 0 3 * * *"},
		{" @daily ", "@daily"},
	}
	for _, tt := range tests {
		if got := normalizeCron(tt.in); got != tt.want {
			t.Fatalf("normalizeCron(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := NewScheduler()
	if _, err := s.AddJob("bad", "not a schedule", func(context.Context) error { return nil }); err == nil {
		t.Fatalf("expected invalid cron error")
	}
	if _, err := s.AddJob("nil", "@daily", nil); err == nil {
		t.Fatalf("expected error for nil task")
	}
	if len(s.ListJobs()) != 0 {
		t.Fatalf("failed jobs must not be registered")
	}
}

func TestRunNowRecordsResult(t *testing.T) {
	s := NewScheduler()
	fail := true
	job, err := s.AddJob("flaky", "@daily", func(context.Context) error {
		if fail {
			return errors.New("disk full")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	if err := s.RunNow(job.ID); err == nil {
		t.Fatalf("expected task error")
	}
	jobs := s.ListJobs()
	if len(jobs) != 1 || jobs[0].LastError != "disk full" || jobs[0].LastRun == nil {
		t.Fatalf("unexpected job state: %+v", jobs)
	}

	fail = false
	if err := s.RunNow(job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.ListJobs()[0].LastError != "" {
		t.Fatalf("error should be cleared after success")
	}

	if err := s.RemoveJob(job.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RunNow(job.ID); err == nil {
		t.Fatalf("expected not found after removal")
	}
}

type fakePruner struct {
	cutoff time.Time
	err    error
}

func (f *fakePruner) PruneRunLogs(cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

type fakeCleaner struct {
	calls int
}

func (f *fakeCleaner) CleanupOldFiles() error {
	f.calls++
	return nil
}

func TestRetentionTask(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	pruner := &fakePruner{}
	cleaner := &fakeCleaner{}

	task := retentionTask(pruner, 30, cleaner, func() time.Time { return now })
	if err := task(context.Background()); err != nil {
		t.Fatalf("retention: %v", err)
	}
	if want := now.AddDate(0, 0, -30); !pruner.cutoff.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", pruner.cutoff, want)
	}
	if cleaner.calls != 1 {
		t.Fatalf("expected audit cleanup, got %d calls", cleaner.calls)
	}

	keepAll := &fakePruner{}
	if err := retentionTask(keepAll, 0, nil, func() time.Time { return now })(context.Background()); err != nil {
		t.Fatalf("retention: %v", err)
	}
	if !keepAll.cutoff.IsZero() {
		t.Fatalf("log_days 0 must not prune")
	}

	broken := &fakePruner{err: errors.New("locked")}
	err := retentionTask(broken, 7, cleaner, func() time.Time { return now })(context.Background())
	if err == nil || !strings.Contains(err.Error(), "locked") {
		t.Fatalf("expected prune error, got %v", err)
	}
	if cleaner.calls != 2 {
		t.Fatalf("audit cleanup should still run after a prune failure")
	}
}
