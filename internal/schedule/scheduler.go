// Package schedule provides periodic workflow triggering. A Scheduler holds
// a set of interval schedules and enqueues a run request through a worker
// whenever a schedule comes due.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/orbit-run/orbit/pkg/api"
)

// DefaultCheckInterval is how often the scheduler looks for due schedules
// when no interval is configured.
const DefaultCheckInterval = time.Minute

// Enqueuer submits run requests for asynchronous execution.
// *worker.Worker satisfies this.
type Enqueuer interface {
	EnqueueRun(ctx context.Context, workflowName string, opts api.RunOptions) (string, error)
}

// Schedule triggers a registered workflow every Every interval.
type Schedule struct {
	WorkflowName string
	Every        time.Duration
	Enabled      bool

	// NextRun is the next time this schedule is due. Zero means
	// "immediately on the next check".
	NextRun time.Time
	LastRun time.Time
}

// Scheduler periodically checks its schedules and enqueues due workflows.
// It is safe for concurrent use.
type Scheduler struct {
	engine   api.Engine
	enqueuer Enqueuer
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	schedules map[string]*Schedule
}

// New creates a Scheduler that checks for due schedules every checkInterval.
// A non-positive checkInterval means DefaultCheckInterval.
func New(engine api.Engine, enqueuer Enqueuer, checkInterval time.Duration, logger *slog.Logger) *Scheduler {
	if checkInterval <= 0 {
		checkInterval = DefaultCheckInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		engine:    engine,
		enqueuer:  enqueuer,
		interval:  checkInterval,
		logger:    logger,
		now:       time.Now,
		schedules: make(map[string]*Schedule),
	}
}

// Add registers a schedule. A workflow can have at most one schedule;
// adding again replaces the previous one.
func (s *Scheduler) Add(sched Schedule) error {
	if sched.WorkflowName == "" {
		return errors.New("schedule needs a workflow name")
	}
	if sched.Every <= 0 {
		return fmt.Errorf("schedule interval must be positive, got %v", sched.Every)
	}

	s.mu.Lock()
	s.schedules[sched.WorkflowName] = &sched
	s.mu.Unlock()
	return nil
}

// Remove drops the schedule for the given workflow, if any.
func (s *Scheduler) Remove(workflowName string) {
	s.mu.Lock()
	delete(s.schedules, workflowName)
	s.mu.Unlock()
}

// SetEnabled flips a schedule on or off without losing its timing state.
func (s *Scheduler) SetEnabled(workflowName string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.schedules[workflowName]
	if !ok {
		return fmt.Errorf("no schedule for workflow: %s", workflowName)
	}
	sched.Enabled = enabled
	return nil
}

// Schedules returns a snapshot of all schedules.
func (s *Scheduler) Schedules() []Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		out = append(out, *sched)
	}
	return out
}

// Run checks for due schedules every check interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", slog.Duration("check_interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.CheckOnce(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		}
	}
}

// CheckOnce enqueues every enabled schedule that is due right now. A zero
// NextRun counts as due. Exported so callers (and tests) can drive the
// scheduler without the ticker loop.
func (s *Scheduler) CheckOnce(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*Schedule
	for _, sched := range s.schedules {
		if sched.Enabled && (sched.NextRun.IsZero() || !sched.NextRun.After(now)) {
			due = append(due, sched)
		}
	}
	s.mu.Unlock()

	for _, sched := range due {
		if err := s.trigger(ctx, sched, now); err != nil {
			s.logger.Error("scheduled trigger failed",
				slog.String("workflow", sched.WorkflowName), slog.Any("error", err))
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context, sched *Schedule, now time.Time) error {
	// A schedule pointing at a workflow that no longer exists is disabled
	// rather than retried forever.
	if _, err := s.engine.GetWorkflow(sched.WorkflowName); err != nil {
		if errors.Is(err, api.ErrWorkflowNotFound) {
			s.logger.Error("workflow not found, disabling schedule",
				slog.String("workflow", sched.WorkflowName))
			s.mu.Lock()
			sched.Enabled = false
			s.mu.Unlock()
			return nil
		}
		return err
	}

	// Advance timing state before enqueueing so a slow queue cannot cause
	// repeated triggers of the same slot.
	s.mu.Lock()
	sched.LastRun = now
	sched.NextRun = now.Add(sched.Every)
	s.mu.Unlock()

	if _, err := s.enqueuer.EnqueueRun(ctx, sched.WorkflowName, api.RunOptions{}); err != nil {
		return fmt.Errorf("enqueueing scheduled run: %w", err)
	}

	s.logger.Info("scheduled workflow triggered",
		slog.String("workflow", sched.WorkflowName),
		slog.Time("next_run", sched.NextRun))
	return nil
}
