// 包 utils：数据库、Redis 与证书等连接工具，统一环境变量读取
package utils

import (
	"database/sql"
	"net/url"
	"os"
	"strconv"

	_ "github.com/lib/pq"
)

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			return n
		}
	}
	return def
}

// BuildPostgresDSNFromEnv：由 PG_* 变量拼装 DSN；用户名与密码做 URL 转义
func BuildPostgresDSNFromEnv() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     envOr("PG_HOST", "localhost") + ":" + envOr("PG_PORT", "5432"),
		Path:     "/" + envOr("PG_DB", "vn_demographic"),
		RawQuery: "sslmode=" + url.QueryEscape(envOr("PG_SSLMODE", "disable")),
	}
	user := envOr("PG_USER", "postgres")
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

// OpenPostgresFromEnv：打开连接池；PG_MAX_OPEN_CONNS/PG_MAX_IDLE_CONNS 解析失败时使用默认值
// 约束：sql.Open 不建立连接，可用性由调用方 Ping 确认。
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(envInt("PG_MAX_OPEN_CONNS", 20))
	db.SetMaxIdleConns(envInt("PG_MAX_IDLE_CONNS", 10))
	return db, nil
}
