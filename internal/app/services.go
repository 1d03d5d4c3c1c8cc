package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/adjustments"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/catalog"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/integration"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/inventory"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/masterdata"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/platform/cache"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/platform/db"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/shared"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/jobs"
)

// Services bundles the wired application services and their shared resources.
type Services struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
	Jobs  *jobs.Client

	Inventory   *inventory.Service
	Adjustments *adjustments.Service
	Catalog     *catalog.Repository
	MasterData  *masterdata.Repository
}

// NewServices connects to Postgres and Redis and wires the full service
// graph. Callers own the returned handles and release them with Close.
func NewServices(ctx context.Context, cfg *Config, logger *slog.Logger) (*Services, error) {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("app: connect postgres: %w", err)
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("app: connect redis: %w", err)
	}
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("app: jobs client: %w", err)
	}

	catalogRepo := catalog.NewRepository(pool)
	masterRepo := masterdata.NewRepository(pool)
	inventoryRepo := inventory.NewRepository(pool, cfg.LockTimeout)
	adjustmentRepo := adjustments.NewRepository(pool, cfg.LockTimeout)
	idempotency := shared.NewIdempotencyStore(pool)
	hooks := integration.NewHooks(shared.NewAuditLogger(pool), jobsClient, logger)
	directory := masterdata.NewCachedDirectory(masterRepo, redisClient, cfg.DirectoryCacheTTL)

	inventorySvc := inventory.NewService(inventoryRepo, catalogRepo, idempotency, hooks, logger)
	adjustmentSvc := adjustments.NewService(adjustmentRepo, catalogRepo, directory, inventoryRepo, hooks, logger)

	return &Services{
		Pool:        pool,
		Redis:       redisClient,
		Jobs:        jobsClient,
		Inventory:   inventorySvc,
		Adjustments: adjustmentSvc,
		Catalog:     catalogRepo,
		MasterData:  masterRepo,
	}, nil
}

// Close releases the database and queue connections.
func (s *Services) Close() {
	if s == nil {
		return
	}
	if s.Jobs != nil {
		_ = s.Jobs.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}
