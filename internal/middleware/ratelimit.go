// 包 middleware：入口级 HTTP 中间件
package middleware

import (
	"net/http"
	"sync"
	"time"

	"demographic-map/internal/logger"
)

// TokenBucket：按秒补满的令牌桶
// 背景：在流量峰值时对入口限速，避免会话存储与数据集重算被过载。
// 约束：不做排队，超出即返回 429；令牌在每个自然秒开始时补满。
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	now      func() time.Time
	mu       sync.Mutex
}

func NewTokenBucket(qps int) *TokenBucket {
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// RateLimit：enabled 为 false 时原样返回 next
func RateLimit(enabled bool, qps int, next http.Handler) http.Handler {
	if !enabled {
		return next
	}
	if qps <= 0 {
		qps = 200
	}
	tb := NewTokenBucket(qps)
	logger.L().Info("rate_limit_enabled", "qps", qps)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.Allow() {
			logger.L().Debug("rate_limited", "path", r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
