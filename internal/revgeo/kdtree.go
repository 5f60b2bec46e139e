package revgeo

import "math"

// kdNode：二维 KD-Tree 节点，经度/纬度交替分割
type kdNode struct {
	p    Point
	axis int // 0:lon,1:lat
	l, r *kdNode
}

func buildKD(ps []Point, depth int) *kdNode {
	if len(ps) == 0 {
		return nil
	}
	axis := depth % 2
	mid := len(ps) / 2
	selectNth(ps, mid, axis)
	n := &kdNode{p: ps[mid], axis: axis}
	n.l = buildKD(ps[:mid], depth+1)
	n.r = buildKD(ps[mid+1:], depth+1)
	return n
}

// selectNth：原地把第 n 小的元素放到位置 n，左侧均不大于它
func selectNth(a []Point, n, axis int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi, (lo+hi)/2, axis)
		switch {
		case p == n:
			return
		case n < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
}

func partition(a []Point, lo, hi, pivot, axis int) int {
	pv := a[pivot]
	a[pivot], a[hi] = a[hi], a[pivot]
	i := lo
	for j := lo; j < hi; j++ {
		if coord(a[j], axis) < coord(pv, axis) {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

func coord(p Point, axis int) float64 {
	if axis == 0 {
		return p.Lon
	}
	return p.Lat
}

// nearest：最近邻查询，返回点与距离（千米）
// 约束：只有分割面到查询点的球面距离小于当前最优距离时才遍历另一侧。
func nearest(root *kdNode, lat, lon float64) (Point, float64) {
	var best Point
	bestD := math.MaxFloat64
	var dfs func(n *kdNode)
	dfs = func(n *kdNode) {
		if n == nil {
			return
		}
		if d := haversine(lat, lon, n.p.Lat, n.p.Lon); d < bestD {
			bestD, best = d, n.p
		}
		key := lat
		if n.axis == 0 {
			key = lon
		}
		q := coord(n.p, n.axis)
		first, second := n.l, n.r
		if key > q {
			first, second = n.r, n.l
		}
		dfs(first)
		if planeDist(lat, lon, n.axis, q) <= bestD {
			dfs(second)
		}
	}
	dfs(root)
	return best, bestD
}

const (
	earthR = 6371.0
	rad    = math.Pi / 180
)

// planeDist：查询点到分割面的最短球面距离（千米）
// 纬线面取经线方向的距离；经线面取到该经线大圆的距离，经差超过 90 度时不剪枝。
func planeDist(lat, lon float64, axis int, q float64) float64 {
	if axis == 1 {
		return math.Abs(lat-q) * rad * earthR
	}
	dl := math.Abs(lon-q) * rad
	if dl >= math.Pi/2 {
		return 0
	}
	return earthR * math.Asin(math.Cos(lat*rad)*math.Sin(dl))
}

// haversine：球面距离（千米）
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthR * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
