package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"demographic-map/internal/dashboard"
	"demographic-map/internal/filters"
	"demographic-map/internal/geoip"
	"demographic-map/internal/logger"
	"demographic-map/internal/metrics"
	"demographic-map/internal/revgeo"
	"demographic-map/internal/session"
)

// maxBodyBytes：筛选请求体上限
const maxBodyBytes = 1 << 20

// selectionRequest：POST /filters 请求体；只需包含本次变更的维度
type selectionRequest struct {
	Selections map[string][]string `json:"selections"`
}

type locateResponse struct {
	geoip.Position
	Source  string      `json:"source"`
	Nearest *revgeo.Hit `json:"nearest,omitempty"`
}

// BuildRoutes：构建 API 路由；独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func (s *Server) BuildRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /filters", s.instrument("filters_get", s.handleFiltersGet))
	mux.Handle("POST /filters", s.instrument("filters_post", s.handleFiltersPost))
	mux.Handle("POST /filters/reset", s.instrument("filters_reset", s.handleFiltersReset))
	mux.Handle("GET /view", s.instrument("view", s.handleView))
	mux.Handle("GET /meta", s.instrument("meta", s.handleMeta))
	mux.Handle("GET /locate", s.instrument("locate", s.handleLocate))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// instrument：统计请求数与耗时
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(start).Microseconds()) / 1000)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Error("api_encode_error", "status", status, "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// fail：按错误类别映射状态码
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errNotReady):
		w.Header().Set("retry-after", "2")
		status = http.StatusServiceUnavailable
	case errors.Is(err, filters.ErrUnknownDimension),
		errors.Is(err, dashboard.ErrUnknownBasemap),
		errors.Is(err, dashboard.ErrUnknownPopulationView),
		errors.Is(err, geoip.ErrBadIP):
		status = http.StatusBadRequest
	case errors.Is(err, dashboard.ErrUnknownAdmin):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		logger.L().Error("api_error", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, err)
}

// handleFiltersGet：无输入协调一次，返回各维度可选项与当前选择
func (s *Server) handleFiltersGet(w http.ResponseWriter, r *http.Request) {
	sn, err := s.current()
	if err != nil {
		fail(w, r, err)
		return
	}
	sid := session.ID(w, r, s.opts.SessionTTL)
	res, err := sn.filters.Reconcile(r.Context(), sid, nil)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleFiltersPost：应用用户选择；settle=true 时在一次请求内协调到稳定
func (s *Server) handleFiltersPost(w http.ResponseWriter, r *http.Request) {
	sn, err := s.current()
	if err != nil {
		fail(w, r, err)
		return
	}
	var req selectionRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("bad request body: "+err.Error()))
		return
	}
	settle, _ := strconv.ParseBool(r.URL.Query().Get("settle"))
	sid := session.ID(w, r, s.opts.SessionTTL)
	var res *filters.Result
	if settle {
		res, err = sn.filters.Settle(r.Context(), sid, req.Selections)
	} else {
		res, err = sn.filters.Reconcile(r.Context(), sid, req.Selections)
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleFiltersReset：清空选择后返回不受约束的可选项
func (s *Server) handleFiltersReset(w http.ResponseWriter, r *http.Request) {
	sn, err := s.current()
	if err != nil {
		fail(w, r, err)
		return
	}
	sid := session.ID(w, r, s.opts.SessionTTL)
	if err := sn.filters.Reset(r.Context(), sid); err != nil {
		fail(w, r, err)
		return
	}
	res, err := sn.filters.Reconcile(r.Context(), sid, nil)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sn, err := s.current()
	if err != nil {
		fail(w, r, err)
		return
	}
	sid := session.ID(w, r, s.opts.SessionTTL)
	_, st, err := sn.filters.View(r.Context(), sid)
	if err != nil {
		fail(w, r, err)
		return
	}
	q := r.URL.Query()
	v, err := dashboard.Build(sn.data, sn.filters, st, s.opts.Defaults, dashboard.Request{
		Basemap:    q.Get("basemap"),
		Population: q.Get("population"),
		Click:      q.Get("click"),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleMeta：界面下拉框所需的固定枚举
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"dimensions":       s.opts.Dimensions,
		"basemaps":         dashboard.Basemaps,
		"population_views": dashboard.PopulationViews,
		"defaults":         s.opts.Defaults,
	})
}

// handleLocate：访问者坐标与最近的坊
// 背景：浏览器定位可直接传 lat/lon；否则按访问者 IP 查 GeoIP，不可用或无结果时返回全国默认中心。
func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var res locateResponse
	if q.Has("lat") || q.Has("lon") {
		lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
		lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
		if err1 != nil || err2 != nil || !validCoord(lat, lon) {
			writeError(w, http.StatusBadRequest, errors.New("lat/lon out of range"))
			return
		}
		res = locateResponse{Position: geoip.Position{Lat: lat, Lon: lon}, Source: "client"}
	} else {
		ip := q.Get("ip")
		if ip == "" {
			ip = visitorIP(r)
		}
		pos, err := s.opts.Geo.Locate(ip)
		switch {
		case err == nil:
			res = locateResponse{Position: pos, Source: "geoip"}
		case errors.Is(err, geoip.ErrBadIP):
			fail(w, r, err)
			return
		default:
			logger.L().Debug("locate_fallback", "ip", ip, "err", err)
			writeJSON(w, http.StatusOK, locateResponse{
				Position: geoip.Position{IP: ip, Lat: dashboard.DefaultLat, Lon: dashboard.DefaultLon},
				Source:   "default",
			})
			return
		}
	}
	if sn, err := s.current(); err == nil {
		if hit, ok := sn.nearest.Nearest(res.Lat, res.Lon); ok {
			res.Nearest = &hit
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// validCoord：ParseFloat 接受 NaN/Inf，需显式排除
func validCoord(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return math.Abs(lat) <= 90 && math.Abs(lon) <= 180
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sn, err := s.current()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"wards":     sn.data.Wards.Len(),
		"districts": sn.data.Districts.Len(),
		"loaded_at": sn.data.LoadedAt,
	})
}
