package attempt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisStoreTimeout = 2 * time.Second

// RedisStore keeps a learner's device state in Redis, for hosts that run
// attempt sessions server-side (one prefix per learner). Semantics match
// the other stores: best-effort, errors read as absent.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore creates a store whose keys are namespaced under prefix.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) Get(key string, v any) bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisStoreTimeout)
	defer cancel()

	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (s *RedisStore) Set(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisStoreTimeout)
	defer cancel()
	s.rdb.Set(ctx, s.key(key), raw, 0)
}

func (s *RedisStore) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisStoreTimeout)
	defer cancel()
	s.rdb.Del(ctx, s.key(key))
}
