// 包 ingest：数据集的后台定期重载与首次导入，运行在服务进程内
package ingest

import (
	"context"
	"time"

	"demographic-map/internal/logger"
	"demographic-map/internal/metrics"
)

// ReloadFunc：重新装载数据集并替换当前快照
type ReloadFunc func(ctx context.Context) error

// RunOnce：执行一次重载并记录结果
func RunOnce(ctx context.Context, reload ReloadFunc) error {
	l := logger.L()
	start := time.Now()
	l.Info("reload_start")
	if err := reload(ctx); err != nil {
		metrics.DatasetReloadsTotal.WithLabelValues("error").Inc()
		l.Error("reload_error", "err", err)
		return err
	}
	metrics.DatasetReloadsTotal.WithLabelValues("ok").Inc()
	l.Info("reload_done", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// StartPeriodic：每隔 interval 重载一次，直到 ctx 取消
// 背景：上游数据按年度更新，周期通常较长；错误由日志记录，任务继续调度，旧快照保持可用。
// 约束：interval <= 0 时不启动；同一时刻只有一次重载在执行。
func StartPeriodic(ctx context.Context, interval time.Duration, reload ReloadFunc) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		logger.L().Info("reload_disabled")
		close(done)
		return done
	}
	logger.L().Info("reload_scheduled", "interval_s", int64(interval.Seconds()))
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_ = RunOnce(ctx, reload)
			}
		}
	}()
	return done
}
