package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/wealthio/internal/config"
	"github.com/hitoshi/wealthio/internal/database"
	"github.com/hitoshi/wealthio/internal/repository"
)

// pinger はストアの疎通確認を行うインターフェース。
type pinger interface {
	Ping(ctx context.Context) error
}

// stores はDATABASE_URLのスキームに応じて構築したリポジトリ群。
type stores struct {
	backend  database.Backend
	users    repository.UserRepository
	resets   repository.ResetEntryRepository
	expenses repository.ExpenseRepository
	health   pinger
	close    func()
}

// openStores はストアに接続し、バックエンドに対応するリポジトリを構築する。
// MongoDBの場合は起動時にインデックスを作成する。
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	backend, err := database.DetectBackend(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	switch backend {
	case database.BackendMongo:
		db, err := database.OpenMongo(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		closeFn := func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				slog.Error("failed to disconnect MongoDB", slog.String("error", err.Error()))
			}
		}
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			closeFn()
			return nil, err
		}

		slog.Info("database connection established", slog.String("backend", string(backend)))

		users := repository.NewMongoUserRepo(db)
		return &stores{
			backend:  backend,
			users:    users,
			resets:   repository.NewMongoResetEntryRepo(db),
			expenses: repository.NewMongoExpenseRepo(db),
			health:   users,
			close:    closeFn,
		}, nil

	default:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		slog.Info("database connection established", slog.String("backend", string(backend)))

		users := repository.NewPostgresUserRepo(db)
		return &stores{
			backend:  backend,
			users:    users,
			resets:   repository.NewPostgresResetEntryRepo(db),
			expenses: repository.NewPostgresExpenseRepo(db),
			health:   users,
			close:    func() { db.Close() },
		}, nil
	}
}
