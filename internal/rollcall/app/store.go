package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store/drivers/mongo"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store/drivers/sqlite"
)

// SQLiteDSN is the connection string for a database file, with a busy
// timeout and WAL journaling.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

// OpenStore connects the configured driver. It does not migrate.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case StoreSQLite:
		db, err := sqlite.NewStore(SQLiteDSN(cfg.DatabaseFile))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return db, nil
	case StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		db, err := mongo.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// OpenMigratedStore opens the store and applies pending migrations.
func OpenMigratedStore(ctx context.Context, cfg Config, logger *slog.Logger) (store.Store, error) {
	db, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	logger.Info("database migrations applied", "driver", cfg.StoreDriver)
	return db, nil
}
