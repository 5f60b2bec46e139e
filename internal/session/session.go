// 包 session：按会话隔离的键值存储，保存跨请求持久的界面状态（如筛选条件）
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound：键不存在
var ErrNotFound = errors.New("session key not found")

// KV：会话级键值存储契约
// 背景：状态以显式注入的方式传入各操作，替代进程级单例，测试时无需 UI 运行时。
// 约束：不同 sid 之间互不可见；Delete 对不存在的键不报错。
type KV interface {
	Get(ctx context.Context, sid, key string) ([]byte, error)
	Set(ctx context.Context, sid, key string, val []byte) error
	Delete(ctx context.Context, sid, key string) error
}

// CookieName：会话 ID 所在 Cookie
const CookieName = "sid"

// ID：读取请求中的会话 ID，缺失或非法时生成新 ID 并写回 Cookie
// 约束：仅接受 UUID 格式，避免客户端注入任意 Redis 键片段。
func ID(w http.ResponseWriter, r *http.Request, ttl time.Duration) string {
	if c, err := r.Cookie(CookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	sid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}
