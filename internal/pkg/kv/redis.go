package kv

import (
	"context"

	pkgredis "github.com/mx-space/memory-explorer/internal/pkg/redis"
)

// RedisStore keeps values as plain Redis strings under an optional prefix.
type RedisStore struct {
	rc     *pkgredis.Client
	prefix string
}

func NewRedisStore(rc *pkgredis.Client, prefix string) *RedisStore {
	return &RedisStore{rc: rc, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.rc.Get(ctx, s.key(key))
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.rc.Set(ctx, s.key(key), value)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rc.Del(ctx, s.key(key))
}
