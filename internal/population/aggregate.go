package population

import (
	"math"
	"sort"
)

// round：四舍五入到 n 位小数
func round(x float64, n int) float64 {
	p := math.Pow(10, float64(n))
	return math.Round(x*p) / p
}

// Aggregate：按 dist_id 汇总坊级人口，并与青年人口内连接
// 背景：密度 = round(total / area_sqm * 1e6)，即每平方公里人数；没有青年人口记录的区县被丢弃。
// 约束：结果按 dist_id 排序；城市/区县名取自该区县的第一条坊记录；代表点取各坊代表点均值。
func Aggregate(wards []Ward, young []YoungPop) []District {
	yp := make(map[string]YoungPop, len(young))
	for _, y := range young {
		yp[y.DistID] = y
	}
	byID := make(map[string]*District)
	counts := make(map[string]int)
	var ids []string
	for _, w := range wards {
		d, ok := byID[w.DistID]
		if !ok {
			d = &District{DistID: w.DistID, City: w.City, District: w.District}
			byID[w.DistID] = d
			ids = append(ids, w.DistID)
		}
		d.AreaSqm += w.AreaSqm
		d.Total += w.Total
		d.Urban += w.Urban
		d.Rural += w.Rural
		d.Lat += w.Lat
		d.Lon += w.Lon
		counts[w.DistID]++
	}
	sort.Strings(ids)
	out := make([]District, 0, len(ids))
	for _, id := range ids {
		y, ok := yp[id]
		if !ok {
			continue
		}
		d := byID[id]
		if d.AreaSqm > 0 {
			d.Density = math.Round(d.Total / d.AreaSqm * 1e6)
		}
		d.UrbanPcnt = UrbanPcnt(d.Urban, d.Total)
		n := float64(counts[id])
		d.Lat /= n
		d.Lon /= n
		d.Young = y
		out = append(out, *d)
	}
	return out
}
