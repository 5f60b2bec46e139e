package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"demographic-map/internal/logger"
)

// WatchDir：监听数据目录，文件变化后经过 debounce 静默期再重载一次
// 背景：数据文件通常由拷贝或解压整体替换，一次替换会产生多次写事件，合并后只重载一次。
// 约束：只监听 dir 本身（数据文件平铺存放）；debounce <= 0 时不启动；重载串行执行。
func WatchDir(ctx context.Context, dir string, debounce time.Duration, reload ReloadFunc) (<-chan struct{}, error) {
	done := make(chan struct{})
	if debounce <= 0 {
		logger.L().Info("watch_disabled")
		close(done)
		return done, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	l := logger.L()
	l.Info("watch_started", "dir", dir, "debounce_ms", debounce.Milliseconds())
	go func() {
		defer close(done)
		defer w.Close()
		var (
			timer   *time.Timer
			fire    <-chan time.Time
			trigger string
		)
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !relevant(ev) {
					continue
				}
				trigger = ev.Name
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(debounce)
				fire = timer.C
			case <-fire:
				fire = nil
				l.Info("watch_triggered", "file", filepath.Base(trigger))
				_ = RunOnce(ctx, reload)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.Warn("watch_error", "err", err)
			}
		}
	}()
	return done, nil
}

// relevant：只关心数据文件的增删改；忽略隐藏文件与编辑器临时文件
func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".json", ".geojson":
		return true
	}
	return false
}
