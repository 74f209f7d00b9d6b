package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/xenking/jokeshop/internal/domain/cart"
	"github.com/xenking/jokeshop/internal/domain/product"
	"github.com/xenking/jokeshop/internal/domain/user"
	"github.com/xenking/jokeshop/internal/storage/mongo"
	"github.com/xenking/jokeshop/internal/storage/postgres"
	"github.com/xenking/jokeshop/pkg/health"
)

// Catalog reads and seeds products.
type Catalog interface {
	product.Repository
	product.Writer
}

// Storage bundles the repositories of the selected backend.
type Storage struct {
	Products Catalog
	Carts    cart.Repository
	Users    user.Repository
	// Ping backs the readiness probe.
	Ping health.CheckFunc

	close func(ctx context.Context) error
}

// Close releases the backend connections.
func (s *Storage) Close(ctx context.Context) error {
	return s.close(ctx)
}

// OpenStorage connects to the configured backend and prepares its schema:
// indexes for MongoDB, the embedded migrations for PostgreSQL.
func OpenStorage(ctx context.Context, lg *zap.Logger, cfg StorageConfig) (*Storage, error) {
	switch cfg.Backend {
	case BackendMongo:
		client, err := mongo.NewClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, errors.Wrap(err, "connect mongo")
		}
		db := client.Database(cfg.MongoDatabase)
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, errors.Wrap(err, "ensure indexes")
		}
		lg.Info("Using MongoDB storage", zap.String("database", cfg.MongoDatabase))

		return &Storage{
			Products: mongo.NewProductRepository(db),
			Carts:    mongo.NewCartRepository(db),
			Users:    mongo.NewUserRepository(db),
			Ping: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			},
			close: client.Disconnect,
		}, nil

	case BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		lg.Info("Using PostgreSQL storage")

		return &Storage{
			Products: postgres.NewProductRepository(pool),
			Carts:    postgres.NewCartRepository(pool),
			Users:    postgres.NewUserRepository(pool),
			Ping:     health.PingCheck("postgres", pool),
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
