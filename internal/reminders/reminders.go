// Package reminders runs the scheduled pending-task summary. On each
// tick it reads pending tasks from the store and hands a spoken-style
// summary to the announcer, which is the voice pipeline in voice mode
// and a logger sink otherwise.
package reminders

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gmsas95/aria/internal/metrics"
	"github.com/gmsas95/aria/internal/store"
)

// Announcer delivers a reminder to the user.
type Announcer func(ctx context.Context, message string)

// Scheduler owns the cron loop.
type Scheduler struct {
	cron     *cron.Cron
	store    *store.Store
	announce Announcer
	logger   *zap.Logger
	schedule string

	mu      sync.Mutex
	running bool
	entry   cron.EntryID
}

// NewScheduler builds a scheduler on the standard 5-field cron syntax.
func NewScheduler(schedule string, st *store.Store, announce Announcer, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		store:    st,
		announce: announce,
		logger:   logger,
		schedule: schedule,
	}
}

// Start registers the job and begins ticking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("reminder scheduler already running")
	}

	entry, err := s.cron.AddFunc(s.schedule, s.runOnce)
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.schedule, err)
	}
	s.entry = entry

	s.cron.Start()
	s.running = true
	s.logger.Info("Reminder scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("Reminder scheduler stopped")
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runOnce() {
	message, err := s.PendingSummary()
	if err != nil {
		s.logger.Error("Failed to build reminder", zap.Error(err))
		metrics.RemindersTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return
	}
	if message == "" {
		metrics.RemindersTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		return
	}

	s.announce(context.Background(), message)
	metrics.RemindersTotal.WithLabelValues(metrics.OutcomeOK).Inc()
}

// PendingSummary renders the reminder text, or "" when there is nothing
// pending.
func (s *Scheduler) PendingSummary() (string, error) {
	tasks, err := s.store.ListTasks(store.FilterPending)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "", nil
	}

	var sb strings.Builder
	if len(tasks) == 1 {
		sb.WriteString("You have 1 pending task: ")
	} else {
		fmt.Fprintf(&sb, "You have %d pending tasks: ", len(tasks))
	}
	names := make([]string, 0, len(tasks))
	for _, task := range tasks {
		names = append(names, task.Description)
	}
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString(".")
	return sb.String(), nil
}
