package population

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"demographic-map/internal/logger"
)

// 约定文件名（与上游数据仓库一致）
const (
	BoundariesFile = "VN_Boundaries_Ward.json"
	PopulationFile = "VN_Population_ward.csv"
	YoungPopFile   = "VN_YoungPop_dist.csv"
)

// FileSource：从本地数据目录读取
// 背景：边界 GeoJSON 只读取 properties（名称、ID、代表点），几何不解析；人口 CSV 按 ward_id 内连接。
type FileSource struct {
	Dir string
}

func (f FileSource) Wards(ctx context.Context) ([]Ward, error) {
	bounds, err := readBoundaries(filepath.Join(f.Dir, BoundariesFile))
	if err != nil {
		return nil, err
	}
	rows, err := readCSV(filepath.Join(f.Dir, PopulationFile))
	if err != nil {
		return nil, err
	}
	out := make([]Ward, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := normID(r["ward_id"])
		if id == "" {
			skipped++
			continue
		}
		w, ok := bounds[id]
		if !ok {
			skipped++
			continue
		}
		w.AreaSqm = num(r["area_sqm"])
		w.Total = num(r["total"])
		w.Density = num(r["pop_density"])
		w.Urban = num(r["urban"])
		w.Rural = num(r["rural"])
		out = append(out, w)
	}
	logger.L().Info("population_files_wards", "dir", f.Dir, "wards", len(out), "skipped", skipped)
	return out, nil
}

func (f FileSource) YoungPop(ctx context.Context) ([]YoungPop, error) {
	rows, err := readCSV(filepath.Join(f.Dir, YoungPopFile))
	if err != nil {
		return nil, err
	}
	out := make([]YoungPop, 0, len(rows))
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := normID(r["dist_id"])
		if id == "" {
			continue
		}
		out = append(out, YoungPop{
			DistID: id,
			Total:  num(r["total_15_34"]),
			Dense:  num(r["dense_15_34"]),
			Urban:  num(r["urban_15_34"]),
			Rural:  num(r["rural_15_34"]),
		})
	}
	return out, nil
}

// readBoundaries：读取 FeatureCollection 的 properties，按 ward_id 建索引
func readBoundaries(path string) (map[string]Ward, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundaries: %w", err)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("decode boundaries %s: %w", path, err)
	}
	if !strings.EqualFold(fc.Type, "FeatureCollection") {
		return nil, fmt.Errorf("decode boundaries %s: want FeatureCollection, got %q", path, fc.Type)
	}
	out := make(map[string]Ward, len(fc.Features))
	for _, ft := range fc.Features {
		p := ft.Properties
		id := normID(getStr(p, "ward_id"))
		if id == "" {
			continue
		}
		out[id] = Ward{
			WardID:   id,
			DistID:   normID(getStr(p, "dist_id")),
			City:     InsertSpace(getStr(p, "city")),
			District: Label(getStr(p, "dist_title"), getStr(p, "district")),
			Name:     Label(getStr(p, "ward_title"), getStr(p, "ward")),
			Lat:      num(getStr(p, "lat")),
			Lon:      num(getStr(p, "lon")),
		}
	}
	return out, nil
}

// readCSV：读取带表头的 CSV，每行转为 列名 -> 值
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1
	header, err := rd.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header %s: %w", filepath.Base(path), err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	var out []map[string]string
	for {
		rec, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// getStr：属性值统一转为字符串（数值型 ID 与坐标也可能以数字出现）
func getStr(m map[string]any, k string) string {
	switch v := m[k].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// normID：整数值的浮点写法（如 "26734.0"）归一为 "26734"；缺失值（""、"nan"）返回空串
func normID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

// num：解析失败或缺失时取 0
func num(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
