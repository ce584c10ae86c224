package database

import (
	"context"
	"fmt"
	"time"

	"github.com/glucomind-ai/assistant/pkg/common/config"
	"github.com/glucomind-ai/assistant/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis dials the cache used for query-embedding memoization. A failed
// ping is logged but not fatal: the retriever works without the cache.
func ConnectRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.WithError(err).Warn("Redis unavailable, embedding cache disabled")
	} else {
		logger.Log.Info("Connected to Redis")
	}

	return client
}

func CloseRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
