// Package scheduler re-enters deferred actions once their DELAY has elapsed.
//
// A claimed row is PROCESSING until its outcome is saved. Rows left PROCESSING longer than
// the lease, because the runner holding them died, are released back to PENDING at the start
// of every poll. The lease must outlast the slowest follow-up action, otherwise a row still
// being worked on can run twice.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/robfig/cron/v3"
)

const (
	DefaultInterval         = 30 * time.Second
	DefaultBatchSize        = 50
	DefaultMaxAttempts      = 5
	DefaultRetryInterval    = time.Minute
	DefaultMaxRetryInterval = time.Hour
	DefaultLease            = 15 * time.Minute
)

// ErrPermanent marks deferred actions that cannot succeed on retry.
var ErrPermanent = errors.New("deferred action cannot be resumed")

// ActionDispatcher runs a single action outside of a workflow execution.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, actionType string, config map[string]any, actx protocol.ActionContext) (any, error)
}

// DeferredRunner polls for due deferred actions, claims them and runs the action their DELAY
// step was holding back, using the record snapshot taken when the delay was scheduled.
type DeferredRunner struct {
	persistence persistence.Persistence
	dispatcher  ActionDispatcher
	clock       clock.Clock
	logger      *slog.Logger

	interval         time.Duration
	batchSize        int
	maxAttempts      int
	retryInterval    time.Duration
	maxRetryInterval time.Duration
	lease            time.Duration

	cron  *cron.Cron
	mutex sync.Mutex
}

// Option configures a DeferredRunner.
type Option func(*DeferredRunner)

// WithClock replaces the wall clock, for tests.
func WithClock(clk clock.Clock) Option {
	return func(r *DeferredRunner) { r.clock = clk }
}

// WithInterval sets how often due actions are polled.
func WithInterval(interval time.Duration) Option {
	return func(r *DeferredRunner) { r.interval = interval }
}

// WithBatchSize caps how many due actions one poll claims.
func WithBatchSize(size int) Option {
	return func(r *DeferredRunner) { r.batchSize = size }
}

// WithMaxAttempts sets how many failed runs mark an action FAILED.
func WithMaxAttempts(attempts int) Option {
	return func(r *DeferredRunner) { r.maxAttempts = attempts }
}

// WithRetryInterval sets the first retry delay and the cap of the exponential backoff.
func WithRetryInterval(initial, maxInterval time.Duration) Option {
	return func(r *DeferredRunner) {
		r.retryInterval = initial
		r.maxRetryInterval = maxInterval
	}
}

// WithLease sets how long a claimed action may stay PROCESSING before it is released.
func WithLease(lease time.Duration) Option {
	return func(r *DeferredRunner) { r.lease = lease }
}

// NewDeferredRunner creates a runner over the deferred actions of p that resumes them through dispatcher.
func NewDeferredRunner(p persistence.Persistence, dispatcher ActionDispatcher, logger *slog.Logger, opts ...Option) *DeferredRunner {
	runner := &DeferredRunner{
		persistence:      p,
		dispatcher:       dispatcher,
		clock:            clock.New(),
		logger:           logger.With("module", "deferred_runner"),
		interval:         DefaultInterval,
		batchSize:        DefaultBatchSize,
		maxAttempts:      DefaultMaxAttempts,
		retryInterval:    DefaultRetryInterval,
		maxRetryInterval: DefaultMaxRetryInterval,
		lease:            DefaultLease,
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Start schedules RunOnce every interval until Stop is called or ctx is done.
func (r *DeferredRunner) Start(ctx context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.cron != nil {
		return errors.New("deferred runner already started")
	}

	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	schedule := "@every " + r.interval.String()

	_, err := r.cron.AddFunc(schedule, func() {
		_, err := r.RunOnce(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "Deferred run failed", "error", err)
		}
	})
	if err != nil {
		r.cron = nil

		return fmt.Errorf("failed to schedule deferred runner %q: %w", schedule, err)
	}

	r.cron.Start()
	r.logger.InfoContext(ctx, "Deferred runner started", "interval", r.interval, "batch_size", r.batchSize)

	return nil
}

// Stop waits for a running poll to finish.
func (r *DeferredRunner) Stop(ctx context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.cron == nil {
		return nil
	}

	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	r.cron = nil
	r.logger.InfoContext(ctx, "Deferred runner stopped")

	return nil
}

// RunOnce releases stale claims, then processes one batch of due actions and returns how
// many it claimed. Rows claimed by a concurrent runner are left to it.
func (r *DeferredRunner) RunOnce(ctx context.Context) (int, error) {
	repo := r.persistence.DeferredActionRepository()
	now := r.clock.Now().UTC()

	released, err := repo.ReleaseStale(ctx, now.Add(-r.lease), now)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to release stale deferred actions", "error", err)
	} else if released > 0 {
		r.logger.WarnContext(ctx, "Released stale deferred actions", "count", released, "lease", r.lease)
	}

	due, err := repo.Due(ctx, now, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load due deferred actions: %w", err)
	}

	processed := 0

	for _, row := range due {
		claimed, err := repo.Claim(ctx, row.ID, now)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to claim deferred action", "deferred_action_id", row.ID, "error", err)

			continue
		}

		if !claimed {
			continue
		}

		row.Status = models.DeferredStatusProcessing
		r.process(ctx, row)
		processed++
	}

	return processed, nil
}

func (r *DeferredRunner) process(ctx context.Context, row *models.DeferredAction) {
	logger := r.logger.With(
		"deferred_action_id", row.ID,
		"workflow_id", row.Payload.WorkflowID,
		"execution_id", row.Payload.ExecutionID,
	)

	err := r.resume(ctx, row, logger)

	switch {
	case err == nil:
		row.Status = models.DeferredStatusCompleted
		row.LastError = ""
	case errors.Is(err, ErrPermanent):
		logger.WarnContext(ctx, "Deferred action abandoned", "error", err)

		row.Attempts++
		row.Status = models.DeferredStatusFailed
		row.LastError = err.Error()
	default:
		row.Attempts++
		row.LastError = err.Error()

		if row.Attempts >= r.maxAttempts {
			logger.WarnContext(ctx, "Deferred action failed", "attempts", row.Attempts, "error", err)

			row.Status = models.DeferredStatusFailed
		} else {
			delay := r.retryDelay(row.Attempts)
			logger.InfoContext(ctx, "Deferred action will be retried", "attempts", row.Attempts, "delay", delay, "error", err)

			row.Status = models.DeferredStatusPending
			row.ScheduledFor = r.clock.Now().UTC().Add(delay)
		}
	}

	row.UpdatedAt = r.clock.Now().UTC()

	err = r.persistence.DeferredActionRepository().Save(ctx, row)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to save deferred action", "status", row.Status, "error", err)
	}
}

func (r *DeferredRunner) resume(ctx context.Context, row *models.DeferredAction, logger *slog.Logger) error {
	definition, err := r.persistence.WorkflowRepository().GetByID(ctx, row.Payload.WorkflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return fmt.Errorf("%w: %w", ErrPermanent, err)
		}

		return err
	}

	action, ok := definition.ActionByID(row.Payload.ActionID)
	if !ok {
		return fmt.Errorf("%w: action %s no longer exists in workflow %s", ErrPermanent, row.Payload.ActionID, definition.ID)
	}

	actionType, config, ok := action.DelayFollowUp()
	if !ok {
		logger.DebugContext(ctx, "Delay elapsed without follow-up action")

		return nil
	}

	actx := protocol.ActionContext{
		ExecutionID:   row.Payload.ExecutionID,
		WorkflowID:    row.Payload.WorkflowID,
		ActionID:      action.ID,
		TriggerObject: row.EntityType,
		Record:        row.Payload.Record,
		ActorID:       row.Payload.ActorID,
	}

	execution, err := r.persistence.ExecutionRepository().GetByID(ctx, row.Payload.ExecutionID)
	if err == nil {
		actx.TriggerEvent = execution.TriggerEvent
	}

	_, err = r.dispatcher.Dispatch(ctx, string(actionType), config, actx)
	if err != nil {
		return fmt.Errorf("follow-up %s failed: %w", actionType, err)
	}

	logger.InfoContext(ctx, "Deferred action completed", "action_type", actionType)

	return nil
}

// retryDelay returns the exponential backoff delay before retry number attempts.
func (r *DeferredRunner) retryDelay(attempts int) time.Duration {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.retryInterval
	policy.MaxInterval = r.maxRetryInterval
	policy.RandomizationFactor = 0
	policy.Multiplier = 2
	policy.MaxElapsedTime = 0
	policy.Reset()

	delay := policy.NextBackOff()
	for i := 1; i < attempts; i++ {
		delay = policy.NextBackOff()
	}

	return delay
}
