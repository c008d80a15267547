package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corrigohq/corrigo/config"
)

// ConnectRedis establishes the Redis connection for the session cache. It
// supports direct, sentinel, and cluster topologies and verifies the
// connection with a bounded ping before returning.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	var client redis.UniversalClient
	switch {
	case cfg.UseCluster:
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.ClusterNodes,
			Password: cfg.Password,
		})
		logger.Info("connecting to redis cluster", slog.Any("nodes", cfg.ClusterNodes))
	case cfg.UseSentinel:
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       cfg.SentinelMasterName,
			SentinelAddrs:    cfg.SentinelNodes,
			SentinelPassword: cfg.SentinelPassword,
			Password:         cfg.Password,
		})
		logger.Info("connecting to redis via sentinel",
			slog.String("master", cfg.SentinelMasterName),
			slog.Any("sentinels", cfg.SentinelNodes),
		)
	default:
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.URI,
			Password: cfg.Password,
		})
		logger.Info("connecting to redis", slog.String("addr", cfg.URI))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}
