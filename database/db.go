package database

import (
	"context"
	"fmt"
	"log/slog" // use slog for structured logging

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mangatrack/internal/config"
	"mangatrack/internal/store"
	"mangatrack/internal/store/mongostore"
	"mangatrack/internal/store/redisstore"
	"mangatrack/internal/store/sqlstore"
)

// OpenStore connects to the backend selected by cfg and returns the store
// over it. With no backend configured it logs once and returns store.ErrNoBackend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	backend, err := cfg.StoreBackend()
	if err != nil {
		logger.Error("no_store_backend_configured", "error", err)
		return nil, err
	}

	var s store.Store
	switch backend {
	case config.BackendMongo:
		client, err := ConnectMongo(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		s = mongostore.New(client.Database(cfg.MongoDatabase), cfg.DBTimeout, logger)

	case config.BackendPostgres:
		db, err := ConnectPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		sqlStore := sqlstore.New(db, cfg.DBTimeout, logger)
		if err := sqlStore.EnsureSchema(ctx); err != nil {
			sqlStore.Close(ctx)
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
		s = sqlStore

	case config.BackendRedis:
		client, err := ConnectRedis(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		s = redisstore.New(client, cfg.RedisPrefix, cfg.DBTimeout, logger)
	}

	logger.Info("store_opened", "backend", backend)
	return s, nil
}

func ConnectMongo(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.MongoURL)
	if cfg.DBMaxConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.DBMaxConns))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open mongo client: %w", err)
	}

	// Verify the connection
	pingCtx, cancel := store.WithTimeout(ctx, cfg.DBTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		logger.Error("mongo_connect_failed", "error", err)
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	logger.Info("Connected to MongoDB successfully", "database", cfg.MongoDatabase)
	return client, nil
}

func ConnectPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		logger.Error("postgres_connect_failed", "error", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxConns)
	}

	// Verify the connection
	pingCtx, cancel := store.WithTimeout(ctx, cfg.DBTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		// close the db handle if ping fails to avoid resource leak
		sqlDB.Close()
		logger.Error("postgres_connect_failed", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully")
	return db, nil
}

func ConnectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		opts.PoolSize = cfg.DBMaxConns
	}
	rdb := redis.NewClient(opts)

	// Verify connection
	pingCtx, cancel := store.WithTimeout(ctx, cfg.DBTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		logger.Error("redis_connect_failed", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis successfully", "addr", opts.Addr)
	return rdb, nil
}
