package cache

import (
	"context"
	"fmt"
	"time"

	"musicbox/config"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "musicbox:revoked:"

// NewRedisClient 初始化Redis连接 and verifies it with a PING.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisRevoker keeps revoked admin token IDs in Redis. Entries expire on
// their own when the token would have expired anyway.
type RedisRevoker struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client, now: time.Now}
}

func (r *RedisRevoker) Revoke(ctx context.Context, id string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedKeyPrefix+id, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token %s: %w", id, err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation of %s: %w", id, err)
	}
	return n > 0, nil
}

// Close 关闭Redis连接
func (r *RedisRevoker) Close() error {
	return r.client.Close()
}

// ProbeRedis 测试Redis连接和基本操作 using a short-lived revocation entry.
func ProbeRedis(ctx context.Context, r *RedisRevoker) error {
	const probeID = "connection-test"
	if err := r.Revoke(ctx, probeID, r.now().Add(time.Minute)); err != nil {
		return err
	}
	revoked, err := r.IsRevoked(ctx, probeID)
	if err != nil {
		return err
	}
	if !revoked {
		return fmt.Errorf("revocation entry %s was not readable", probeID)
	}
	if err := r.client.Del(ctx, revokedKeyPrefix+probeID).Err(); err != nil {
		return fmt.Errorf("failed to delete Redis key: %w", err)
	}
	return nil
}
