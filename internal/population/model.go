// 包 population：越南人口数据（坊/区县两级）的装载、标签规范化与区县汇总
package population

import (
	"context"
	"fmt"
	"time"

	"demographic-map/internal/dataset"
)

// 列名：坊级与区县级表共用的命名
const (
	ColWardID     = "ward_id"
	ColDistID     = "dist_id"
	ColCity       = "city"
	ColDistrict   = "district"
	ColWard       = "ward"
	ColArea       = "area_sqm"
	ColTotal      = "total"
	ColDensity    = "pop_density"
	ColUrban      = "urban"
	ColRural      = "rural"
	ColUrbanPcnt  = "urban_pcnt"
	ColLat        = "lat"
	ColLon        = "lon"
	ColYoung      = "total_15_34"
	ColYoungDense = "dense_15_34"
	ColYoungUrban = "urban_15_34"
	ColYoungRural = "rural_15_34"
)

// Ward：坊级记录（边界属性与人口统计按 ward_id 内连接后的结果）
// Lat/Lon 为预先计算的代表点，不在本服务内做几何运算。
type Ward struct {
	WardID   string
	DistID   string
	City     string
	District string
	Name     string
	AreaSqm  float64
	Total    float64
	Density  float64
	Urban    float64
	Rural    float64
	Lat      float64
	Lon      float64
}

// YoungPop：区县级 15-34 岁人口
type YoungPop struct {
	DistID string
	Total  float64
	Dense  float64
	Urban  float64
	Rural  float64
}

// District：由坊级汇总并与 YoungPop 内连接的区县记录
type District struct {
	DistID    string
	City      string
	District  string
	AreaSqm   float64
	Total     float64
	Urban     float64
	Rural     float64
	Density   float64
	UrbanPcnt float64
	Young     YoungPop
	Lat       float64
	Lon       float64
}

// Data：一次装载得到的两级只读表
type Data struct {
	Wards     *dataset.Table
	Districts *dataset.Table
	LoadedAt  time.Time
}

// Source：数据来源（本地文件或 PostgreSQL）
type Source interface {
	Wards(ctx context.Context) ([]Ward, error)
	YoungPop(ctx context.Context) ([]YoungPop, error)
}

// Load：从来源读取并构建两级表
func Load(ctx context.Context, src Source) (*Data, error) {
	wards, err := src.Wards(ctx)
	if err != nil {
		return nil, fmt.Errorf("load wards: %w", err)
	}
	young, err := src.YoungPop(ctx)
	if err != nil {
		return nil, fmt.Errorf("load young population: %w", err)
	}
	return Build(wards, young)
}

// UrbanPcnt：城镇人口占比（百分数，保留两位小数后乘 100）；总数为 0 时取 0
func UrbanPcnt(urban, total float64) float64 {
	if total == 0 {
		return 0
	}
	return round(urban/total, 2) * 100
}

// Build：由坊级记录与青年人口构建两级表
func Build(wards []Ward, young []YoungPop) (*Data, error) {
	wb, err := dataset.NewBuilder(
		dataset.Column{Name: ColWardID, Kind: dataset.String},
		dataset.Column{Name: ColDistID, Kind: dataset.String},
		dataset.Column{Name: ColCity, Kind: dataset.String},
		dataset.Column{Name: ColDistrict, Kind: dataset.String},
		dataset.Column{Name: ColWard, Kind: dataset.String},
		dataset.Column{Name: ColArea, Kind: dataset.Number},
		dataset.Column{Name: ColTotal, Kind: dataset.Number},
		dataset.Column{Name: ColDensity, Kind: dataset.Number},
		dataset.Column{Name: ColUrban, Kind: dataset.Number},
		dataset.Column{Name: ColRural, Kind: dataset.Number},
		dataset.Column{Name: ColUrbanPcnt, Kind: dataset.Number},
		dataset.Column{Name: ColLat, Kind: dataset.Number},
		dataset.Column{Name: ColLon, Kind: dataset.Number},
	)
	if err != nil {
		return nil, err
	}
	for _, w := range wards {
		if err := wb.Append(w.WardID, w.DistID, w.City, w.District, w.Name,
			w.AreaSqm, w.Total, w.Density, w.Urban, w.Rural, UrbanPcnt(w.Urban, w.Total), w.Lat, w.Lon); err != nil {
			return nil, fmt.Errorf("ward %s: %w", w.WardID, err)
		}
	}

	db, err := dataset.NewBuilder(
		dataset.Column{Name: ColDistID, Kind: dataset.String},
		dataset.Column{Name: ColCity, Kind: dataset.String},
		dataset.Column{Name: ColDistrict, Kind: dataset.String},
		dataset.Column{Name: ColArea, Kind: dataset.Number},
		dataset.Column{Name: ColTotal, Kind: dataset.Number},
		dataset.Column{Name: ColDensity, Kind: dataset.Number},
		dataset.Column{Name: ColUrban, Kind: dataset.Number},
		dataset.Column{Name: ColRural, Kind: dataset.Number},
		dataset.Column{Name: ColUrbanPcnt, Kind: dataset.Number},
		dataset.Column{Name: ColYoung, Kind: dataset.Number},
		dataset.Column{Name: ColYoungDense, Kind: dataset.Number},
		dataset.Column{Name: ColYoungUrban, Kind: dataset.Number},
		dataset.Column{Name: ColYoungRural, Kind: dataset.Number},
		dataset.Column{Name: ColLat, Kind: dataset.Number},
		dataset.Column{Name: ColLon, Kind: dataset.Number},
	)
	if err != nil {
		return nil, err
	}
	for _, d := range Aggregate(wards, young) {
		if err := db.Append(d.DistID, d.City, d.District,
			d.AreaSqm, d.Total, d.Density, d.Urban, d.Rural, d.UrbanPcnt,
			d.Young.Total, d.Young.Dense, d.Young.Urban, d.Young.Rural, d.Lat, d.Lon); err != nil {
			return nil, fmt.Errorf("district %s: %w", d.DistID, err)
		}
	}
	return &Data{Wards: wb.Build(), Districts: db.Build(), LoadedAt: time.Now()}, nil
}
