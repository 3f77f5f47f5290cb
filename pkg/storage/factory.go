package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/config"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

// New builds the SessionStore selected by cfg.Storage.Backend. cfg must already be validated.
func New(ctx context.Context, cfg config.AppConfig, logger *logrus.Entry) (SessionStore, error) {
	sc := cfg.Storage
	storeLog := logger.WithFields(logrus.Fields{"component": "storage", "backend": sc.Backend})

	switch sc.Backend {
	case config.StorageBackendMemory, "":
		storeLog.Info("Using in-memory quiz session store")
		return NewMemoryStore(sc.SessionTTL), nil
	case config.StorageBackendBadger:
		return NewBadgerStore(cfg.StateDir, sc.Resume, sc.SessionTTL, storeLog)
	case config.StorageBackendRedis:
		return NewRedisStore(ctx, sc.RedisURL, sc.KeyPrefix, sc.SessionTTL, storeLog)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend '%s'", utils.ErrConfigValidation, sc.Backend)
	}
}
