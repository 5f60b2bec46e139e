// 包 config：集中读取环境变量并在启动时校验，未知枚举值直接报错
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"demographic-map/internal/dashboard"
)

// ErrInvalid：配置值非法
var ErrInvalid = errors.New("invalid configuration")

const (
	SourcePostgres = "postgres"
	SourceFiles    = "files"
)

type Config struct {
	Addr    string
	APIBase string

	Dimensions     []string
	DefaultBasemap dashboard.Basemap
	PopulationView dashboard.PopulationView

	DataSource     string
	DataDir        string
	ReloadInterval time.Duration
	SessionTTL     time.Duration
	GeoIPPath      string

	// WatchDebounce：files 来源下数据目录变化后的静默期，0 表示不监听
	WatchDebounce time.Duration

	// NearestRadiusKm：定位坐标匹配最近坊的最大距离
	NearestRadiusKm float64

	RateLimitEnabled bool
	RateLimitQPS     int

	TLSEnable   bool
	TLSCertPath string
	TLSKeyPath  string
}

// LoadDotEnv：依次加载 .env 与 data/env/.env，文件不存在时忽略
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
}

// Load：从环境变量读取配置
// 异常：枚举值未知、数值无法解析时返回包装 ErrInvalid 的错误；维度是否为数据列在数据装载后由 filters.New 校验。
func Load() (*Config, error) {
	c := &Config{
		Addr:        getenv("ADDR", ":8080"),
		APIBase:     strings.TrimRight(getenv("API_BASE", "/api"), "/"),
		DataSource:  strings.ToLower(getenv("DATA_SOURCE", SourceFiles)),
		DataDir:     getenv("DATA_DIR", filepath.Join("data", "vn")),
		GeoIPPath:   os.Getenv("GEOIP_PATH"),
		TLSEnable:   os.Getenv("TLS_ENABLE") == "true",
		TLSCertPath: getenv("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt")),
		TLSKeyPath:  getenv("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key")),

		RateLimitEnabled: os.Getenv("RATE_LIMIT_ENABLED") == "true",
	}
	if c.APIBase != "" && !strings.HasPrefix(c.APIBase, "/") {
		return nil, fmt.Errorf("%w: API_BASE %q must start with /", ErrInvalid, c.APIBase)
	}

	for _, d := range strings.Split(getenv("FILTER_DIMENSIONS", "city,district,ward"), ",") {
		if d = strings.TrimSpace(d); d != "" {
			c.Dimensions = append(c.Dimensions, d)
		}
	}
	if len(c.Dimensions) == 0 {
		return nil, fmt.Errorf("%w: FILTER_DIMENSIONS is empty", ErrInvalid)
	}

	var err error
	if c.DefaultBasemap, err = dashboard.LookupBasemap(getenv("DEFAULT_BASEMAP", dashboard.Basemaps[0].Name)); err != nil {
		return nil, fmt.Errorf("%w: DEFAULT_BASEMAP: %v", ErrInvalid, err)
	}
	if c.PopulationView, err = dashboard.LookupPopulationView(getenv("POPULATION_VIEW", dashboard.PopulationViews[0].Column)); err != nil {
		return nil, fmt.Errorf("%w: POPULATION_VIEW: %v", ErrInvalid, err)
	}

	switch c.DataSource {
	case SourcePostgres, SourceFiles:
	default:
		return nil, fmt.Errorf("%w: DATA_SOURCE %q (want %s or %s)", ErrInvalid, c.DataSource, SourcePostgres, SourceFiles)
	}

	if c.ReloadInterval, err = seconds("RELOAD_INTERVAL_S", 0); err != nil {
		return nil, err
	}
	if c.SessionTTL, err = seconds("SESSION_TTL_S", 86400); err != nil {
		return nil, err
	}
	if c.SessionTTL <= 0 {
		return nil, fmt.Errorf("%w: SESSION_TTL_S must be positive", ErrInvalid)
	}

	c.WatchDebounce = 2 * time.Second
	if s := os.Getenv("WATCH_DEBOUNCE_MS"); s != "" {
		n, e := strconv.Atoi(s)
		if e != nil || n < 0 {
			return nil, fmt.Errorf("%w: WATCH_DEBOUNCE_MS %q", ErrInvalid, s)
		}
		c.WatchDebounce = time.Duration(n) * time.Millisecond
	}

	c.NearestRadiusKm = 30
	if s := os.Getenv("NEAREST_RADIUS_KM"); s != "" {
		f, e := strconv.ParseFloat(s, 64)
		if e != nil || f <= 0 {
			return nil, fmt.Errorf("%w: NEAREST_RADIUS_KM %q", ErrInvalid, s)
		}
		c.NearestRadiusKm = f
	}

	c.RateLimitQPS = 200
	if s := os.Getenv("RATE_LIMIT_QPS"); s != "" {
		n, e := strconv.Atoi(s)
		if e != nil || n <= 0 {
			return nil, fmt.Errorf("%w: RATE_LIMIT_QPS %q", ErrInvalid, s)
		}
		c.RateLimitQPS = n
	}
	return c, nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func seconds(k string, def int) (time.Duration, error) {
	s := os.Getenv(k)
	if s == "" {
		return time.Duration(def) * time.Second, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalid, k, s)
	}
	return time.Duration(n) * time.Second, nil
}
