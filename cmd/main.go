// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"demographic-map/internal/api"
	"demographic-map/internal/config"
	"demographic-map/internal/dashboard"
	"demographic-map/internal/geoip"
	"demographic-map/internal/ingest"
	"demographic-map/internal/logger"
	"demographic-map/internal/metrics"
	"demographic-map/internal/middleware"
	"demographic-map/internal/migrate"
	"demographic-map/internal/population"
	"demographic-map/internal/session"
	"demographic-map/internal/store"
	"demographic-map/internal/utils"
)

func main() {
	config.LoadDotEnv()
	l := logger.Setup()
	l.Debug("log_init_ok")

	cfg, err := config.Load()
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	l.Debug("config_ok", "api_base", cfg.APIBase, "source", cfg.DataSource, "dims", cfg.Dimensions)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 数据来源：postgres 时首次运行自动建表，表为空则从本地文件导入一次
	var src population.Source = population.FileSource{Dir: cfg.DataDir}
	if cfg.DataSource == config.SourcePostgres {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
			os.Exit(1)
		}
		l.Info("db_open_ok")
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st := store.AttachDB(db)
		if os.Getenv("AUTO_IMPORT") != "false" {
			if _, err := ingest.EnsureInitialized(ctx, st, population.FileSource{Dir: cfg.DataDir}); err != nil {
				l.Error("initial_import_error", "err", err)
			}
		}
		src = st
	}

	// 会话存储：Redis 不可用时退回进程内存储（单实例部署）
	var kv session.KV = session.NewMemory()
	if rc := utils.OpenRedisFromEnv(); rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(ctx).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
		_ = rc.Close()
	} else {
		l.Info("redis_ping_ok")
		defer rc.Close()
		kv = session.NewRedis(rc, cfg.SessionTTL)
	}

	geo, err := geoip.Open(cfg.GeoIPPath)
	if err != nil {
		l.Error("geoip_open_error", "err", err)
	}
	defer geo.Close()

	srv := api.NewServer(api.Options{
		KV:         kv,
		Dimensions: cfg.Dimensions,
		Defaults:   dashboard.Defaults{Basemap: cfg.DefaultBasemap, Population: cfg.PopulationView},
		SessionTTL: cfg.SessionTTL,
		Geo:        geo,

		NearestRadiusKm: cfg.NearestRadiusKm,
	})
	reload := func(ctx context.Context) error {
		d, err := population.Load(ctx, src)
		if err != nil {
			return err
		}
		return srv.SetData(d)
	}

	// 首次装载在后台进行，完成前数据接口返回 503；维度配置错误属于致命错误
	go func() {
		if err := ingest.RunOnce(ctx, reload); err != nil {
			l.Error("dataset_load_error", "err", err)
			os.Exit(1)
		}
		l.Info("dataset_load_ok")
		ingest.StartPeriodic(ctx, cfg.ReloadInterval, reload)
		if cfg.DataSource == config.SourceFiles {
			if _, err := ingest.WatchDir(ctx, cfg.DataDir, cfg.WatchDebounce, reload); err != nil {
				l.Error("watch_error", "dir", cfg.DataDir, "err", err)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, srv.BuildRoutes()))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l, session.CookieName)(mux)
	handler = middleware.RateLimit(cfg.RateLimitEnabled, cfg.RateLimitQPS, handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	if cfg.TLSEnable {
		if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "demographic-map.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
		err = s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("server_stopped")
}
