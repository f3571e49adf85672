package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clicker_webapp/internal/logger"
)

// RedisClickGate enforces a per-user click cooldown with a Redis SETNX
// key. When Redis is unreachable the gate fails open so gameplay survives
// a cache outage.
type RedisClickGate struct {
	client   *redis.Client
	cooldown time.Duration
}

func NewRedisClickGate(client *redis.Client, cooldown time.Duration) *RedisClickGate {
	return &RedisClickGate{client: client, cooldown: cooldown}
}

func (g *RedisClickGate) Allow(ctx context.Context, userID int64) bool {
	if g == nil || g.client == nil || g.cooldown <= 0 {
		return true
	}
	key := fmt.Sprintf("click_cd:%d", userID)
	ok, err := g.client.SetNX(ctx, key, 1, g.cooldown).Result()
	if err != nil {
		logger.Warn("click gate unavailable, allowing click", "error", err)
		return true
	}
	return ok
}
