// Package store opens the user repository selected by DB_DRIVER.
package store

import (
	"context"
	"fmt"

	"github.com/redmonkez12/tours-api/internal/config"
	"github.com/redmonkez12/tours-api/internal/database"
	"github.com/redmonkez12/tours-api/internal/logging"
	"github.com/redmonkez12/tours-api/internal/user"
)

// Closer releases the connection behind a repository.
type Closer func(ctx context.Context) error

// OpenUsers connects to the configured backend, prepares its schema or
// indexes and returns the repository with its closer.
func OpenUsers(ctx context.Context, cfg config.DatabaseConfig, logger *logging.Logger) (user.Repository, Closer, error) {
	switch cfg.Driver {
	case "mongo":
		client, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		coll := client.Database(cfg.MongoDatabase).Collection(database.UsersCollection)
		if err := database.EnsureUserIndexes(ctx, coll); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		logger.Info("connected to MongoDB", "database", cfg.MongoDatabase)
		return user.NewMongoRepository(coll), client.Disconnect, nil

	case "postgres":
		db, err := database.OpenPostgres(ctx, cfg.ConnectionString())
		if err != nil {
			return nil, nil, err
		}
		if err := database.CreateSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("connected to PostgreSQL", "host", cfg.Host, "database", cfg.DBName)
		return user.NewBunRepository(db), func(context.Context) error { return db.Close() }, nil

	case "memory":
		logger.Warn("using in-memory user store, data is lost on restart")
		return user.NewMemoryRepository(), func(context.Context) error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}
