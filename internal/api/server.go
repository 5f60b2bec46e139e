// 包 api：集中注册 HTTP API 路由以解耦主入口；数据集快照可在运行中原子替换
package api

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"demographic-map/internal/dashboard"
	"demographic-map/internal/filters"
	"demographic-map/internal/geoip"
	"demographic-map/internal/logger"
	"demographic-map/internal/metrics"
	"demographic-map/internal/population"
	"demographic-map/internal/revgeo"
	"demographic-map/internal/session"
)

// errNotReady：首次装载尚未完成
var errNotReady = errors.New("dataset is loading")

// snapshot：一次装载的数据与绑定其上的筛选存储，整体替换
type snapshot struct {
	data    *population.Data
	filters *filters.Store
	nearest *revgeo.Index
}

// Options：服务依赖
type Options struct {
	KV         session.KV
	Dimensions []string
	Defaults   dashboard.Defaults
	SessionTTL time.Duration
	Geo        *geoip.Locator

	// NearestRadiusKm：定位结果匹配最近坊的最大距离，0 取默认
	NearestRadiusKm float64
}

// Server：持有当前快照与会话存储
// 背景：读多写少；请求读取快照指针后全程使用同一版本，重载不会影响进行中的请求。
type Server struct {
	opts Options
	snap atomic.Pointer[snapshot]
}

func NewServer(opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	return &Server{opts: opts}
}

// SetData：以新数据替换当前快照
// 异常：筛选维度不是数据列时返回错误且保留旧快照（首次装载时属于致命配置错误）。
func (s *Server) SetData(d *population.Data) error {
	if d == nil {
		return errors.New("nil dataset")
	}
	fs, err := filters.New(d.Wards, s.opts.KV, s.opts.Dimensions...)
	if err != nil {
		return fmt.Errorf("bind filters: %w", err)
	}
	s.snap.Store(&snapshot{data: d, filters: fs, nearest: revgeo.NewIndex(d.Wards, s.opts.NearestRadiusKm)})
	metrics.DatasetRows.WithLabelValues("wards").Set(float64(d.Wards.Len()))
	metrics.DatasetRows.WithLabelValues("districts").Set(float64(d.Districts.Len()))
	logger.L().Info("dataset_swapped", "wards", d.Wards.Len(), "districts", d.Districts.Len(), "loaded_at", d.LoadedAt)
	return nil
}

// Ready：是否已有可用快照
func (s *Server) Ready() bool { return s.snap.Load() != nil }

func (s *Server) current() (*snapshot, error) {
	sn := s.snap.Load()
	if sn == nil {
		return nil, errNotReady
	}
	return sn, nil
}
