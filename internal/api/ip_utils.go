package api

import (
	"net"
	"net/http"
	"strings"
)

// proxyHeaders：按优先级读取的反向代理头
var proxyHeaders = []string{"x-forwarded-for", "cf-connecting-ip", "x-real-ip", "x-client-ip"}

// visitorIP：获取访问者 IP（用于“定位到我”）
// 背景：多层代理环境下，优先常见反向代理头，其次 Forwarded，最后回退远端地址。
// 约束：头部可被伪造；定位结果只影响地图初始中心，不做信任判断。
func visitorIP(r *http.Request) string {
	h := r.Header
	for _, k := range proxyHeaders {
		if x := h.Get(k); x != "" {
			return strings.TrimSpace(strings.Split(x, ",")[0])
		}
	}
	if x := h.Get("forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := x[i+4:]
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			y = strings.Trim(y, "\" ")
			return y
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
