package dataset

import (
	"math"
	"sort"
)

// View：表上的行子集，与 Table 共享底层数据
// 约束：rows 按升序排列；视图本身只读，过滤总是返回新视图。
type View struct {
	t    *Table
	rows []int
}

func (v View) Table() *Table { return v.t }

func (v View) Len() int { return len(v.rows) }

// Rows：行号副本
func (v View) Rows() []int { return append([]int(nil), v.rows...) }

// Where：保留 col 的值属于 values 的行
// 约束：values 为空时不做约束（返回原视图）；列不存在或不是字符串列时返回空视图。
func (v View) Where(col string, values []string) View {
	if len(values) == 0 || v.t == nil {
		return v
	}
	i, err := v.t.stringColumn(col)
	if err != nil {
		return View{t: v.t}
	}
	allowed := make(map[int32]struct{}, len(values))
	for _, s := range values {
		if id, ok := v.t.codes[i][s]; ok {
			allowed[id] = struct{}{}
		}
	}
	ids := v.t.ids[i]
	out := make([]int, 0, len(v.rows))
	for _, r := range v.rows {
		if _, ok := allowed[ids[r]]; ok {
			out = append(out, r)
		}
	}
	return View{t: v.t, rows: out}
}

// Filter：保留 keep 返回 true 的行
func (v View) Filter(keep func(row int) bool) View {
	out := make([]int, 0, len(v.rows))
	for _, r := range v.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return View{t: v.t, rows: out}
}

// Distinct：字符串列在视图中的去重取值，按字典序排序
func (v View) Distinct(col string) []string {
	if v.t == nil {
		return []string{}
	}
	i, err := v.t.stringColumn(col)
	if err != nil {
		return []string{}
	}
	seen := make(map[int32]struct{})
	out := []string{}
	ids := v.t.ids[i]
	for _, r := range v.rows {
		id := ids[r]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, v.t.dicts[i][id])
	}
	sort.Strings(out)
	return out
}

// Strings：视图内某字符串列的取值（按行顺序）
func (v View) Strings(col string) []string {
	out := make([]string, 0, len(v.rows))
	for _, r := range v.rows {
		out = append(out, v.t.String(r, col))
	}
	return out
}

// Floats：视图内某数值列的取值（按行顺序）
func (v View) Floats(col string) []float64 {
	out := make([]float64, 0, len(v.rows))
	for _, r := range v.rows {
		out = append(out, v.t.Float(r, col))
	}
	return out
}

func (v View) Sum(col string) float64 {
	var s float64
	for _, r := range v.rows {
		s += v.t.Float(r, col)
	}
	return s
}

// Mean：空视图返回 NaN，调用方决定兜底值
func (v View) Mean(col string) float64 {
	if len(v.rows) == 0 {
		return math.NaN()
	}
	return v.Sum(col) / float64(len(v.rows))
}

// Median：偶数个取中间两数的均值；空视图返回 NaN
func (v View) Median(col string) float64 {
	xs := v.Floats(col)
	if len(xs) == 0 {
		return math.NaN()
	}
	sort.Float64s(xs)
	m := len(xs) / 2
	if len(xs)%2 == 1 {
		return xs[m]
	}
	return (xs[m-1] + xs[m]) / 2
}
