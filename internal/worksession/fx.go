package worksession

import (
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/propoza/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("worksession",
	fx.Provide(NewStore),
)

// NewStore picks the backend: redis when REDIS_ADDR is configured, process
// memory otherwise.
func NewStore(cfg config.Config, log *zap.Logger) Store {
	if cfg.RedisAddr == "" {
		return NewMemoryStore()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	log.Named("worksession").Info("using redis-backed session store",
		zap.String("addr", cfg.RedisAddr),
	)
	return NewRedisStore(client)
}
