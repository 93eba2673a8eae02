// Package redis provides a Redis-backed deferred action store.
//
// Rows are JSON strings; PENDING rows are also members of a sorted set scored by their
// scheduled time in unix milliseconds, so due rows are one ZRANGE away. PROCESSING rows sit
// in a second sorted set scored by their last update, which is how stale claims are found.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "automation:"

var _ persistence.DeferredActionRepository = (*DeferredActionRepository)(nil)

// DeferredActionRepository stores deferred actions in Redis.
type DeferredActionRepository struct {
	rdb    redis.UniversalClient
	prefix string
}

// Option configures the repository.
type Option func(*DeferredActionRepository)

// WithPrefix sets the key prefix. Defaults to "automation:".
func WithPrefix(prefix string) Option {
	return func(r *DeferredActionRepository) {
		r.prefix = prefix
	}
}

// NewDeferredActionRepository creates a repository on an existing client.
func NewDeferredActionRepository(rdb redis.UniversalClient, opts ...Option) *DeferredActionRepository {
	r := &DeferredActionRepository{rdb: rdb, prefix: defaultPrefix}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// NewClient parses a redis:// URL into a client.
func NewClient(redisURL string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return redis.NewClient(opts), nil
}

func (r *DeferredActionRepository) rowKey(id string) string {
	return r.prefix + "deferred:" + id
}

func (r *DeferredActionRepository) dueKey() string {
	return r.prefix + "deferred-due"
}

func (r *DeferredActionRepository) processingKey() string {
	return r.prefix + "deferred-processing"
}

func (r *DeferredActionRepository) executionKey(executionID string) string {
	return r.prefix + "deferred-execution:" + executionID
}

// Save writes the row and keeps the due and processing indexes in sync with its status.
func (r *DeferredActionRepository) Save(ctx context.Context, action *models.DeferredAction) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal deferred action %s: %w", action.ID, err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		r.write(ctx, pipe, action, data)

		return nil
	})
	if err != nil {
		return persistence.NewRepositoryError("Save", "deferred action", action.ID, err)
	}

	return nil
}

func (r *DeferredActionRepository) write(ctx context.Context, pipe redis.Pipeliner, action *models.DeferredAction, data []byte) {
	pipe.Set(ctx, r.rowKey(action.ID), data, 0)

	switch action.Status {
	case models.DeferredStatusPending:
		pipe.ZAdd(ctx, r.dueKey(), redis.Z{Score: float64(action.ScheduledFor.UnixMilli()), Member: action.ID})
		pipe.ZRem(ctx, r.processingKey(), action.ID)
	case models.DeferredStatusProcessing:
		pipe.ZRem(ctx, r.dueKey(), action.ID)
		pipe.ZAdd(ctx, r.processingKey(), redis.Z{Score: float64(action.UpdatedAt.UnixMilli()), Member: action.ID})
	default:
		pipe.ZRem(ctx, r.dueKey(), action.ID)
		pipe.ZRem(ctx, r.processingKey(), action.ID)
	}

	if action.Payload.ExecutionID != "" {
		pipe.SAdd(ctx, r.executionKey(action.Payload.ExecutionID), action.ID)
	}
}

func (r *DeferredActionRepository) GetByID(ctx context.Context, id string) (*models.DeferredAction, error) {
	return r.get(ctx, r.rdb, id)
}

func (r *DeferredActionRepository) get(ctx context.Context, c redis.Cmdable, id string) (*models.DeferredAction, error) {
	data, err := c.Get(ctx, r.rowKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewRepositoryError("GetByID", "deferred action", id, persistence.ErrDeferredActionNotFound)
		}

		return nil, persistence.NewRepositoryError("GetByID", "deferred action", id, err)
	}

	var action models.DeferredAction

	err = json.Unmarshal(data, &action)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal deferred action %s: %w", id, err)
	}

	return &action, nil
}

// Due returns PENDING rows scheduled at or before now, oldest first.
func (r *DeferredActionRepository) Due(ctx context.Context, now time.Time, limit int) ([]*models.DeferredAction, error) {
	if limit <= 0 {
		limit = 100
	}

	ids, err := r.rdb.ZRangeArgs(ctx, redis.ZRangeArgs{
		Key:     r.dueKey(),
		Start:   "-inf",
		Stop:    strconv.FormatInt(now.UnixMilli(), 10),
		ByScore: true,
		Count:   int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query due deferred actions: %w", err)
	}

	return r.load(ctx, ids)
}

// Claim moves a PENDING row to PROCESSING in a transaction watching the row key. When two
// runners race, the second EXEC aborts and that caller sees false. The row and both indexes
// change together, so a failed claim leaves the row due.
func (r *DeferredActionRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	claimed := false

	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		action, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}

		if action.Status != models.DeferredStatusPending {
			return nil
		}

		action.Status = models.DeferredStatusProcessing
		action.UpdatedAt = now

		data, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("failed to marshal deferred action %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			r.write(ctx, pipe, action, data)

			return nil
		})
		if err != nil {
			return err
		}

		claimed = true

		return nil
	}, r.rowKey(id))

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return false, nil
	case persistence.IsDeferredActionNotFound(err):
		return false, err
	case err != nil:
		return false, persistence.NewRepositoryError("Claim", "deferred action", id, err)
	}

	return claimed, nil
}

// ReleaseStale puts PROCESSING rows last updated before the given time back in the due index.
// Each row is released in its own watched transaction, so a runner finishing the row at the
// same moment wins.
func (r *DeferredActionRepository) ReleaseStale(ctx context.Context, before time.Time, now time.Time) (int, error) {
	ids, err := r.rdb.ZRangeArgs(ctx, redis.ZRangeArgs{
		Key:     r.processingKey(),
		Start:   "-inf",
		Stop:    "(" + strconv.FormatInt(before.UnixMilli(), 10),
		ByScore: true,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to query stale deferred actions: %w", err)
	}

	released := 0

	for _, id := range ids {
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			action, err := r.get(ctx, tx, id)
			if err != nil {
				return err
			}

			if action.Status != models.DeferredStatusProcessing || !action.UpdatedAt.Before(before) {
				return nil
			}

			action.Status = models.DeferredStatusPending
			action.UpdatedAt = now

			data, err := json.Marshal(action)
			if err != nil {
				return fmt.Errorf("failed to marshal deferred action %s: %w", id, err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				r.write(ctx, pipe, action, data)

				return nil
			})
			if err != nil {
				return err
			}

			released++

			return nil
		}, r.rowKey(id))
		if err != nil && !errors.Is(err, redis.TxFailedErr) {
			return released, persistence.NewRepositoryError("ReleaseStale", "deferred action", id, err)
		}
	}

	return released, nil
}

func (r *DeferredActionRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.DeferredAction, error) {
	ids, err := r.rdb.SMembers(ctx, r.executionKey(executionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list deferred actions of execution %s: %w", executionID, err)
	}

	actions, err := r.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	sortBySchedule(actions)

	return actions, nil
}

func (r *DeferredActionRepository) load(ctx context.Context, ids []string) ([]*models.DeferredAction, error) {
	actions := make([]*models.DeferredAction, 0, len(ids))
	if len(ids) == 0 {
		return actions, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.rowKey(id)
	}

	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load deferred actions: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var action models.DeferredAction

		err := json.Unmarshal([]byte(raw), &action)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal deferred action %s: %w", ids[i], err)
		}

		actions = append(actions, &action)
	}

	return actions, nil
}

func sortBySchedule(actions []*models.DeferredAction) {
	slices.SortFunc(actions, func(a, b *models.DeferredAction) int {
		return a.ScheduledFor.Compare(b.ScheduledFor)
	})
}
