// 包 store: 提供与 PostgreSQL 的数据访问层，包含人口数据读取与批量导入
package store

import (
	"context"
	"database/sql"
	"fmt"

	"demographic-map/internal/logger"
	"demographic-map/internal/population"

	_ "github.com/lib/pq"
)

// BatchSize：导入时每批提交的行数
const BatchSize = 5000

// Store: 数据库访问入口，持有连接池；实现 population.Source
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open: 使用 DSN 打开数据库连接并配置连接池参数
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	return &Store{db: db}, nil
}

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

const wardsQuery = `SELECT w.ward_id, w.dist_id, w.city, w.district, w.ward, w.lat, w.lon,
       p.area_sqm, p.total, p.pop_density, p.urban, p.rural
  FROM _vn_wards w
  JOIN _vn_population p ON p.ward_id = w.ward_id
 ORDER BY w.ward_id`

// Wards: 读取坊级属性并与人口统计按 ward_id 内连接
// 约束：标签在导入时已规范化，这里原样返回。
func (s *Store) Wards(ctx context.Context) ([]population.Ward, error) {
	rows, err := s.db.QueryContext(ctx, wardsQuery)
	if err != nil {
		return nil, fmt.Errorf("query wards: %w", err)
	}
	defer rows.Close()
	var out []population.Ward
	for rows.Next() {
		var w population.Ward
		if err := rows.Scan(&w.WardID, &w.DistID, &w.City, &w.District, &w.Name, &w.Lat, &w.Lon,
			&w.AreaSqm, &w.Total, &w.Density, &w.Urban, &w.Rural); err != nil {
			return nil, fmt.Errorf("scan ward: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wards: %w", err)
	}
	logger.L().Debug("db_wards_loaded", "rows", len(out))
	return out, nil
}

// YoungPop: 读取区县级 15-34 岁人口
func (s *Store) YoungPop(ctx context.Context) ([]population.YoungPop, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT dist_id, total_15_34, dense_15_34, urban_15_34, rural_15_34 FROM _vn_youngpop ORDER BY dist_id`)
	if err != nil {
		return nil, fmt.Errorf("query young population: %w", err)
	}
	defer rows.Close()
	var out []population.YoungPop
	for rows.Next() {
		var y population.YoungPop
		if err := rows.Scan(&y.DistID, &y.Total, &y.Dense, &y.Urban, &y.Rural); err != nil {
			return nil, fmt.Errorf("scan young population: %w", err)
		}
		out = append(out, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate young population: %w", err)
	}
	logger.L().Debug("db_youngpop_loaded", "rows", len(out))
	return out, nil
}

// ImportStats：一次导入写入的行数
type ImportStats struct {
	Wards int
	Young int
}

// Import：把坊级与青年人口记录 UPSERT 到数据库
// 背景：每 BatchSize 行提交一次，降低锁持有与 WAL 压力；重复导入按主键覆盖。
// 异常：任一语句失败即返回，当前批次回滚，已提交批次保留。
func (s *Store) Import(ctx context.Context, wards []population.Ward, young []population.YoungPop) (ImportStats, error) {
	var st ImportStats
	l := logger.L()
	for start := 0; start < len(wards); start += BatchSize {
		end := min(start+BatchSize, len(wards))
		if err := s.importWards(ctx, wards[start:end]); err != nil {
			return st, err
		}
		st.Wards = end
		l.Info("import_wards_batch", "rows", st.Wards, "total", len(wards))
	}
	for start := 0; start < len(young); start += BatchSize {
		end := min(start+BatchSize, len(young))
		if err := s.importYoung(ctx, young[start:end]); err != nil {
			return st, err
		}
		st.Young = end
		l.Info("import_youngpop_batch", "rows", st.Young, "total", len(young))
	}
	return st, nil
}

func (s *Store) importWards(ctx context.Context, batch []population.Ward) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	stmtWard, err := tx.PrepareContext(ctx, `INSERT INTO _vn_wards(ward_id, dist_id, city, district, ward, lat, lon)
        VALUES($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (ward_id) DO UPDATE SET dist_id=EXCLUDED.dist_id, city=EXCLUDED.city, district=EXCLUDED.district, ward=EXCLUDED.ward, lat=EXCLUDED.lat, lon=EXCLUDED.lon`)
	if err != nil {
		return fmt.Errorf("prepare wards: %w", err)
	}
	defer stmtWard.Close()
	stmtPop, err := tx.PrepareContext(ctx, `INSERT INTO _vn_population(ward_id, area_sqm, total, pop_density, urban, rural)
        VALUES($1,$2,$3,$4,$5,$6)
        ON CONFLICT (ward_id) DO UPDATE SET area_sqm=EXCLUDED.area_sqm, total=EXCLUDED.total, pop_density=EXCLUDED.pop_density, urban=EXCLUDED.urban, rural=EXCLUDED.rural`)
	if err != nil {
		return fmt.Errorf("prepare population: %w", err)
	}
	defer stmtPop.Close()
	for _, w := range batch {
		if _, err := stmtWard.ExecContext(ctx, w.WardID, w.DistID, w.City, w.District, w.Name, w.Lat, w.Lon); err != nil {
			return fmt.Errorf("upsert ward %s: %w", w.WardID, err)
		}
		if _, err := stmtPop.ExecContext(ctx, w.WardID, w.AreaSqm, w.Total, w.Density, w.Urban, w.Rural); err != nil {
			return fmt.Errorf("upsert population %s: %w", w.WardID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit wards: %w", err)
	}
	return nil
}

func (s *Store) importYoung(ctx context.Context, batch []population.YoungPop) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO _vn_youngpop(dist_id, total_15_34, dense_15_34, urban_15_34, rural_15_34)
        VALUES($1,$2,$3,$4,$5)
        ON CONFLICT (dist_id) DO UPDATE SET total_15_34=EXCLUDED.total_15_34, dense_15_34=EXCLUDED.dense_15_34, urban_15_34=EXCLUDED.urban_15_34, rural_15_34=EXCLUDED.rural_15_34`)
	if err != nil {
		return fmt.Errorf("prepare young population: %w", err)
	}
	defer stmt.Close()
	for _, y := range batch {
		if _, err := stmt.ExecContext(ctx, y.DistID, y.Total, y.Dense, y.Urban, y.Rural); err != nil {
			return fmt.Errorf("upsert young population %s: %w", y.DistID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit young population: %w", err)
	}
	return nil
}

// CountWards：已导入的坊数量，用于判断是否需要初始化导入
func (s *Store) CountWards(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM _vn_wards").Scan(&n); err != nil {
		return 0, fmt.Errorf("count wards: %w", err)
	}
	return n, nil
}
