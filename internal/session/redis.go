package session

import (
	"context"
	"errors"
	"time"

	"demographic-map/internal/logger"
	"demographic-map/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Redis：基于 go-redis 的会话存储
// 背景：多实例部署时会话状态需共享；键格式 sess:<sid>:<key>，每次写入刷新 TTL。
// 约束：ttl<=0 时不过期。
type Redis struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewRedis(rc *redis.Client, ttl time.Duration) *Redis { return &Redis{rc: rc, ttl: ttl} }

func redisKey(sid, key string) string { return "sess:" + sid + ":" + key }

func (s *Redis) Get(ctx context.Context, sid, key string) ([]byte, error) {
	b, err := s.rc.Get(ctx, redisKey(sid, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.SessionErrorsTotal.WithLabelValues("get").Inc()
		logger.L().Error("session_get_error", "sid", sid, "key", key, "err", err)
		return nil, err
	}
	return b, nil
}

func (s *Redis) Set(ctx context.Context, sid, key string, val []byte) error {
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.rc.Set(ctx, redisKey(sid, key), val, ttl).Err(); err != nil {
		metrics.SessionErrorsTotal.WithLabelValues("set").Inc()
		logger.L().Error("session_set_error", "sid", sid, "key", key, "err", err)
		return err
	}
	return nil
}

func (s *Redis) Delete(ctx context.Context, sid, key string) error {
	if err := s.rc.Del(ctx, redisKey(sid, key)).Err(); err != nil {
		metrics.SessionErrorsTotal.WithLabelValues("delete").Inc()
		logger.L().Error("session_delete_error", "sid", sid, "key", key, "err", err)
		return err
	}
	return nil
}
