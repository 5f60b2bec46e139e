// 包 revgeo：坐标到最近行政单元的反查（基于预先计算的代表点，不做多边形判定）
package revgeo

import (
	"demographic-map/internal/dataset"
	"demographic-map/internal/population"
)

// DefaultRadiusKm：超过该距离视为不在任何单元附近（如海上）
const DefaultRadiusKm = 30.0

// Point：单元代表点；Row 为其在坊级表中的行号
type Point struct {
	Lat float64
	Lon float64
	Row int
}

// Hit：反查结果
type Hit struct {
	WardID     string  `json:"ward_id"`
	DistID     string  `json:"dist_id"`
	City       string  `json:"city"`
	District   string  `json:"district"`
	Ward       string  `json:"ward"`
	DistanceKm float64 `json:"distance_km"`
}

// Index：只读最近邻索引，随数据快照一同构建与替换
type Index struct {
	t         *dataset.Table
	root      *kdNode
	maxRadius float64
}

// NewIndex：以坊级表构建索引；坐标为 (0,0) 的行视为缺失并跳过
func NewIndex(wards *dataset.Table, maxRadiusKm float64) *Index {
	if maxRadiusKm <= 0 {
		maxRadiusKm = DefaultRadiusKm
	}
	ps := make([]Point, 0, wards.Len())
	for r := 0; r < wards.Len(); r++ {
		lat, lon := wards.Float(r, population.ColLat), wards.Float(r, population.ColLon)
		if lat == 0 && lon == 0 {
			continue
		}
		ps = append(ps, Point{Lat: lat, Lon: lon, Row: r})
	}
	return &Index{t: wards, root: buildKD(ps, 0), maxRadius: maxRadiusKm}
}

// Nearest：最近的坊；超出半径或索引为空时返回 false
func (ix *Index) Nearest(lat, lon float64) (Hit, bool) {
	if ix == nil || ix.root == nil {
		return Hit{}, false
	}
	p, d := nearest(ix.root, lat, lon)
	if d > ix.maxRadius {
		return Hit{}, false
	}
	t := ix.t
	return Hit{
		WardID:     t.String(p.Row, population.ColWardID),
		DistID:     t.String(p.Row, population.ColDistID),
		City:       t.String(p.Row, population.ColCity),
		District:   t.String(p.Row, population.ColDistrict),
		Ward:       t.String(p.Row, population.ColWard),
		DistanceKm: d,
	}, true
}
