package utils

import (
	"demographic-map/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedisFromEnv：从环境变量打开 Redis 客户端，支持 REDIS_DB 选择
// 约束：REDIS_ENABLED=false 时返回 nil，会话改用进程内存储；REDIS_DB 解析失败或为负时回退到 0
func OpenRedisFromEnv() *redis.Client {
	if envOr("REDIS_ENABLED", "true") == "false" {
		return nil
	}
	addr := envOr("REDIS_HOST", "127.0.0.1") + ":" + envOr("REDIS_PORT", "6379")
	db := envInt("REDIS_DB", 0)
	if db < 0 {
		db = 0
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: envOr("REDIS_PASS", ""), DB: db})
}
