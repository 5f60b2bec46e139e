// 包 geoip：基于 GeoLite2-City 的访问者定位，用于地图“定位到我”
package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"demographic-map/internal/logger"
)

var (
	// ErrDisabled：未配置数据库文件
	ErrDisabled = errors.New("geoip disabled")
	ErrBadIP    = errors.New("bad ip")
	// ErrNoLocation：数据库中没有该地址的坐标
	ErrNoLocation = errors.New("no location for ip")
)

// Position：定位结果
type Position struct {
	IP      string  `json:"ip"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country,omitempty"`
	City    string  `json:"city,omitempty"`
}

// Locator：mmdb 读取器封装；零值或 nil 表示禁用
type Locator struct {
	r *geoip2.Reader
}

// Open：path 为空时返回 nil 定位器（禁用）且不报错
func Open(path string) (*Locator, error) {
	if path == "" {
		logger.L().Info("geoip_disabled")
		return nil, nil
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip %s: %w", path, err)
	}
	md := r.Metadata()
	logger.L().Info("geoip_open_ok", "path", path, "type", md.DatabaseType, "build_epoch", md.BuildEpoch)
	return &Locator{r: r}, nil
}

func (l *Locator) Enabled() bool { return l != nil && l.r != nil }

func (l *Locator) Close() error {
	if !l.Enabled() {
		return nil
	}
	return l.r.Close()
}

// Locate：查询 IP 的城市级坐标
func (l *Locator) Locate(ip string) (Position, error) {
	if !l.Enabled() {
		return Position{}, ErrDisabled
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return Position{}, fmt.Errorf("%w: %q", ErrBadIP, ip)
	}
	rec, err := l.r.City(parsed)
	if err != nil {
		return Position{}, fmt.Errorf("geoip lookup: %w", err)
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return Position{}, ErrNoLocation
	}
	return Position{
		IP:      parsed.String(),
		Lat:     rec.Location.Latitude,
		Lon:     rec.Location.Longitude,
		Country: rec.Country.IsoCode,
		City:    rec.City.Names["en"],
	}, nil
}
