package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const introspectionKeyPrefix = "introspection:"

// RedisIntrospectionCache はイントロスペクション結果をRedisに保持する。
type RedisIntrospectionCache struct {
	rdb *redis.Client
}

// NewRedisIntrospectionCache はRedisIntrospectionCacheを生成する。
func NewRedisIntrospectionCache(rdb *redis.Client) *RedisIntrospectionCache {
	return &RedisIntrospectionCache{rdb: rdb}
}

// Get はキャッシュ済みのメールアドレスを返す。未登録・期限切れの場合はfalseを返す。
func (c *RedisIntrospectionCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, introspectionKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set はメールアドレスをttlの間保持する。
func (c *RedisIntrospectionCache) Set(ctx context.Context, key, email string, ttl time.Duration) error {
	return c.rdb.Set(ctx, introspectionKeyPrefix+key, email, ttl).Err()
}

// NewRedisClient はRedisクライアントを生成し、疎通を確認する。
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
