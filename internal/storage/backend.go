package storage

import (
	"context"
	"fmt"

	"github.com/abduss/cloudbin/internal/config"
	"github.com/abduss/cloudbin/internal/record"
	"go.uber.org/zap"
)

// OpenRecordStore builds the record store selected by cfg.Storage.Backend.
// The returned close function releases any connection the backend holds.
func OpenRecordStore(ctx context.Context, cfg config.Config, log *zap.Logger) (record.Store, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn("using in-memory record store; data is lost on restart")
		return record.NewMemoryStore(), noop, nil

	case config.BackendJSONBin:
		log.Info("using jsonbin record store", zap.String("base_url", cfg.JSONBin.BaseURL))
		return record.NewJSONBinStore(cfg.JSONBin), noop, nil

	case config.BackendPostgres:
		pool, err := NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		store := record.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		log.Info("using postgres record store", zap.String("host", cfg.Postgres.Host))
		return store, pool.Close, nil

	case config.BackendRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		log.Info("using redis record store", zap.String("addr", cfg.Redis.Addr))
		return record.NewRedisStore(client, cfg.Redis.KeyPrefix), func() { _ = client.Close() }, nil

	case config.BackendMinIO:
		client, err := NewMinIOClient(ctx, cfg.MinIO)
		if err != nil {
			return nil, noop, err
		}
		log.Info("using minio record store", zap.String("bucket", cfg.MinIO.Bucket))
		return record.NewMinIOStore(client, cfg.MinIO.Bucket), noop, nil
	}

	return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
