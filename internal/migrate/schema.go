package migrate

import (
	"context"
	"database/sql"

	"demographic-map/internal/logger"
)

// 背景：首次运行自动创建人口数据表与索引，保障导入与读取
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
var stmts = []string{
	`CREATE TABLE IF NOT EXISTS _vn_wards (
        ward_id TEXT PRIMARY KEY,
        dist_id TEXT NOT NULL,
        city TEXT NOT NULL,
        district TEXT NOT NULL,
        ward TEXT NOT NULL,
        lat DOUBLE PRECISION NOT NULL DEFAULT 0,
        lon DOUBLE PRECISION NOT NULL DEFAULT 0
    )`,
	`CREATE INDEX IF NOT EXISTS idx_vn_wards_dist ON _vn_wards(dist_id)`,
	`CREATE TABLE IF NOT EXISTS _vn_population (
        ward_id TEXT PRIMARY KEY,
        area_sqm DOUBLE PRECISION NOT NULL DEFAULT 0,
        total DOUBLE PRECISION NOT NULL DEFAULT 0,
        pop_density DOUBLE PRECISION NOT NULL DEFAULT 0,
        urban DOUBLE PRECISION NOT NULL DEFAULT 0,
        rural DOUBLE PRECISION NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS _vn_youngpop (
        dist_id TEXT PRIMARY KEY,
        total_15_34 DOUBLE PRECISION NOT NULL DEFAULT 0,
        dense_15_34 DOUBLE PRECISION NOT NULL DEFAULT 0,
        urban_15_34 DOUBLE PRECISION NOT NULL DEFAULT 0,
        rural_15_34 DOUBLE PRECISION NOT NULL DEFAULT 0
    )`,
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
