package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Stores struct {
	fx.Out

	Users    UserStore
	Handoffs HandoffStore
}

// NewStores builds the stores selected by server.store. A redis client is
// pinged on start and closed on stop.
func NewStores(lc fx.Lifecycle, cfg *config.ServerConfig) (Stores, error) {
	switch cfg.Store {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
				}
				logger.Info("Connected to redis", zap.String("addr", cfg.RedisAddr))
				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
		return Stores{
			Users:    NewRedisUserStore(client, cfg.RedisPrefix),
			Handoffs: NewRedisHandoffStore(client, cfg.RedisPrefix),
		}, nil
	case config.StoreMemory, "":
		logger.Warn("Using in-memory user store, users are lost on restart")
		return Stores{
			Users:    NewMemoryUserStore(),
			Handoffs: NewMemoryHandoffStore(),
		}, nil
	default:
		return Stores{}, fmt.Errorf("unsupported store %q", cfg.Store)
	}
}

var Module = fx.Module("store", fx.Provide(NewStores))
