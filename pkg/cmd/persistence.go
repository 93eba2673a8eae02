package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pandacrm/automation/pkg/persistence"
	"github.com/pandacrm/automation/pkg/persistence/file"
	"github.com/pandacrm/automation/pkg/persistence/postgresql"
	redisdeferred "github.com/pandacrm/automation/pkg/persistence/redis"
	"github.com/pandacrm/automation/pkg/records"
	recordspg "github.com/pandacrm/automation/pkg/records/postgresql"
)

const (
	providerFile       = "file"
	providerPostgreSQL = "postgresql"
)

// Storage is the persistence stack selected by the database and redis URLs.
type Storage struct {
	Persistence persistence.Persistence
	Records     records.Store

	closers []func(context.Context) error
}

// NewStorage opens the persistence layer for databaseURL. PostgreSQL URLs also back the
// record store; file persistence pairs with an in-memory record store. A non-empty redisURL
// moves deferred actions to Redis.
func NewStorage(ctx context.Context, logger *slog.Logger, databaseURL, redisURL string) (*Storage, error) {
	storage := &Storage{}

	switch parsePersistenceProvider(databaseURL) {
	case providerPostgreSQL:
		pg, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		storage.Persistence = pg
		storage.Records = recordspg.NewStore(pg.DB())
		storage.closers = append(storage.closers, pg.Close)
	default:
		fp := file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))

		storage.Persistence = fp
		storage.Records = records.NewMemoryStore()
		storage.closers = append(storage.closers, fp.Close)
	}

	if redisURL != "" {
		rdb, err := redisdeferred.NewClient(redisURL)
		if err != nil {
			_ = storage.Close(ctx)

			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		storage.Persistence = persistence.WithDeferredActions(storage.Persistence, redisdeferred.NewDeferredActionRepository(rdb))
		storage.closers = append(storage.closers, func(context.Context) error { return rdb.Close() })
	}

	return storage, nil
}

// Close releases every backend in reverse order of opening.
func (s *Storage) Close(ctx context.Context) error {
	var errs []error

	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}

	return errors.Join(errs...)
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return providerFile
	}

	switch scheme {
	case "postgres", "postgresql":
		return providerPostgreSQL
	default:
		return providerFile
	}
}
