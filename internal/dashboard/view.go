// 包 dashboard：根据筛选状态组装地图与统计卡片所需的数据（不做渲染与几何运算）
package dashboard

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"demographic-map/internal/dataset"
	"demographic-map/internal/filters"
	"demographic-map/internal/metrics"
	"demographic-map/internal/population"
)

// ErrUnknownAdmin：点击的行政单元不在当前展示范围内
var ErrUnknownAdmin = errors.New("unknown admin unit")

// 未筛选时的全国视图中心
const (
	DefaultLat = 16.088850817930474
	DefaultLon = 107.82173235396314
)

// 缩放级别：按最细的已选层级决定
const (
	ZoomCountry  = 6
	ZoomCity     = 10
	ZoomDistrict = 12
	ZoomWard     = 13
)

// headerLevels：标题行依次描述的层级及其复数标签
var headerLevels = []struct{ col, label, plural string }{
	{population.ColCity, "City", "Cities"},
	{population.ColDistrict, "District", "Districts"},
	{population.ColWard, "Ward", "Wards"},
}

// Request：一次视图请求的可选参数；空值取默认
type Request struct {
	Basemap    string
	Population string
	Click      string
}

// Defaults：未指定时使用的底图与人口指标
type Defaults struct {
	Basemap    Basemap
	Population PopulationView
}

type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Feature：地图上的一个行政单元（代表点 + 提示信息 + 着色值）
type Feature struct {
	ID      string            `json:"id"`
	Tooltip map[string]string `json:"tooltip"`
	Value   float64           `json:"value"`
	Lat     float64           `json:"lat"`
	Lon     float64           `json:"lon"`
}

// Summary：统计卡片；占比为 0-1 的两位小数
type Summary struct {
	Total         float64 `json:"total"`
	Urban         float64 `json:"urban"`
	UrbanShare    float64 `json:"urban_share"`
	MedianDensity float64 `json:"median_density"`
	Young         float64 `json:"young"`
	YoungShare    float64 `json:"young_share"`
}

type Row struct {
	City      string  `json:"city"`
	District  string  `json:"district"`
	Ward      string  `json:"ward"`
	Total     float64 `json:"total"`
	Density   float64 `json:"pop_density"`
	UrbanPcnt float64 `json:"urban_pcnt"`
}

// CityBreakdown：单个城市下各坊明细，按人口、密度降序
type CityBreakdown struct {
	City       string  `json:"city"`
	Rows       []Row   `json:"rows"`
	MaxTotal   float64 `json:"max_total"`
	MaxDensity float64 `json:"max_density"`
}

type View struct {
	Level      string          `json:"level"`
	IDColumn   string          `json:"id_column"`
	Zoom       int             `json:"zoom"`
	Center     Center          `json:"center"`
	Basemap    Basemap         `json:"basemap"`
	Population PopulationView  `json:"population"`
	Tooltip    []string        `json:"tooltip"`
	Features   []Feature       `json:"features"`
	Header     []string        `json:"header"`
	Clicked    string          `json:"clicked,omitempty"`
	Summary    Summary         `json:"summary"`
	Breakdown  []CityBreakdown `json:"breakdown,omitempty"`
}

// Build：组装视图
// 背景：存在任一选择时展示过滤后的坊级单元，否则展示区县级汇总；点击某单元后标题与青年人口卡片只描述该单元，其余卡片仍汇总全部展示单元。
// 异常：底图/指标名未知返回 ErrUnknownBasemap/ErrUnknownPopulationView；点击的 ID 不在展示范围内返回 ErrUnknownAdmin。
func Build(data *population.Data, fs *filters.Store, st *filters.State, def Defaults, req Request) (*View, error) {
	bm := def.Basemap
	if req.Basemap != "" {
		b, err := LookupBasemap(req.Basemap)
		if err != nil {
			return nil, err
		}
		bm = b
	}
	pv := def.Population
	if req.Population != "" {
		p, err := LookupPopulationView(req.Population)
		if err != nil {
			return nil, err
		}
		pv = p
	}

	v := &View{Basemap: bm, Population: pv}
	var shown dataset.View
	if st.Any() {
		shown = fs.FilteredView(st, "")
		v.Level = "ward"
		v.IDColumn = population.ColWardID
		v.Tooltip = []string{population.ColCity, population.ColDistrict, population.ColWard}
		switch {
		case len(st.Selections[population.ColWard]) > 0:
			v.Zoom = ZoomWard
		case len(st.Selections[population.ColDistrict]) > 0:
			v.Zoom = ZoomDistrict
		default:
			v.Zoom = ZoomCity
		}
		v.Center = centerOf(shown)
	} else {
		shown = data.Districts.All()
		v.Level = "district"
		v.IDColumn = population.ColDistID
		v.Tooltip = []string{population.ColCity, population.ColDistrict}
		v.Zoom = ZoomCountry
		v.Center = Center{Lat: DefaultLat, Lon: DefaultLon}
	}
	if shown.Len() == 0 {
		metrics.EmptyViewsTotal.Inc()
	}
	v.Features = features(shown, v.IDColumn, v.Tooltip, pv.Column)

	focus := shown
	if req.Click != "" {
		focus = shown.Where(v.IDColumn, []string{req.Click})
		if focus.Len() == 0 {
			return nil, fmt.Errorf("%w: %s %q", ErrUnknownAdmin, v.IDColumn, req.Click)
		}
		v.Clicked = req.Click
	}
	v.Header = header(focus, req.Click != "")
	v.Summary = summarize(data, shown, focus)
	if st.Any() {
		v.Breakdown = breakdown(shown)
	}
	return v, nil
}

// centerOf：代表点均值；空视图回退到默认中心
func centerOf(v dataset.View) Center {
	if v.Len() == 0 {
		return Center{Lat: DefaultLat, Lon: DefaultLon}
	}
	return Center{Lat: v.Mean(population.ColLat), Lon: v.Mean(population.ColLon)}
}

func features(v dataset.View, idCol string, tooltip []string, valueCol string) []Feature {
	t := v.Table()
	out := make([]Feature, 0, v.Len())
	for _, r := range v.Rows() {
		tip := make(map[string]string, len(tooltip))
		for _, c := range tooltip {
			tip[c] = t.String(r, c)
		}
		out = append(out, Feature{
			ID:      t.String(r, idCol),
			Tooltip: tip,
			Value:   t.Float(r, valueCol),
			Lat:     t.Float(r, population.ColLat),
			Lon:     t.Float(r, population.ColLon),
		})
	}
	return out
}

// header：点击时列出该单元名称；否则每个层级不超过 3 个值时逐一列出，超过时给出数量
func header(v dataset.View, clicked bool) []string {
	out := []string{}
	for _, lv := range headerLevels {
		if v.Table() == nil || !v.Table().HasColumn(lv.col) {
			continue
		}
		vals := v.Distinct(lv.col)
		switch {
		case len(vals) == 0:
		case clicked:
			out = append(out, lv.label+": "+vals[0])
		case len(vals) <= 3:
			out = append(out, lv.label+": "+strings.Join(vals, ", "))
		default:
			out = append(out, fmt.Sprintf("%d selected %s", len(vals), lv.plural))
		}
	}
	return out
}

// summarize：总量/城镇/密度卡片按 shown 汇总；青年人口按 focus 涉及的区县汇总，占比仍以 shown 的总量为分母
func summarize(data *population.Data, shown, focus dataset.View) Summary {
	var s Summary
	s.Total = shown.Sum(population.ColTotal)
	s.Urban = shown.Sum(population.ColUrban)
	if m := shown.Median(population.ColDensity); !math.IsNaN(m) {
		s.MedianDensity = math.Trunc(m)
	}
	dists := focus.Distinct(population.ColDistID)
	if len(dists) > 0 {
		s.Young = data.Districts.All().Where(population.ColDistID, dists).Sum(population.ColYoung)
	}
	if s.Total > 0 {
		s.UrbanShare = math.Round(s.Urban/s.Total*100) / 100
		s.YoungShare = math.Round(s.Young/s.Total*100) / 100
	}
	return s
}

func breakdown(v dataset.View) []CityBreakdown {
	t := v.Table()
	var out []CityBreakdown
	for _, city := range v.Distinct(population.ColCity) {
		cb := CityBreakdown{City: city}
		for _, r := range v.Where(population.ColCity, []string{city}).Rows() {
			row := Row{
				City:      city,
				District:  t.String(r, population.ColDistrict),
				Ward:      t.String(r, population.ColWard),
				Total:     t.Float(r, population.ColTotal),
				Density:   t.Float(r, population.ColDensity),
				UrbanPcnt: t.Float(r, population.ColUrbanPcnt),
			}
			cb.MaxTotal = math.Max(cb.MaxTotal, row.Total)
			cb.MaxDensity = math.Max(cb.MaxDensity, row.Density)
			cb.Rows = append(cb.Rows, row)
		}
		sort.SliceStable(cb.Rows, func(i, j int) bool {
			a, b := cb.Rows[i], cb.Rows[j]
			if a.Total != b.Total {
				return a.Total > b.Total
			}
			return a.Density > b.Density
		})
		out = append(out, cb)
	}
	return out
}
