package ingest

import (
	"context"
	"fmt"

	"demographic-map/internal/logger"
	"demographic-map/internal/population"
	"demographic-map/internal/store"
)

// Importer：写入端（由 store.Store 实现）
type Importer interface {
	CountWards(ctx context.Context) (int64, error)
	Import(ctx context.Context, wards []population.Ward, young []population.YoungPop) (store.ImportStats, error)
}

// ImportFrom：从来源读取全部记录并写入数据库
func ImportFrom(ctx context.Context, dst Importer, src population.Source) (store.ImportStats, error) {
	wards, err := src.Wards(ctx)
	if err != nil {
		return store.ImportStats{}, fmt.Errorf("read wards: %w", err)
	}
	young, err := src.YoungPop(ctx)
	if err != nil {
		return store.ImportStats{}, fmt.Errorf("read young population: %w", err)
	}
	st, err := dst.Import(ctx, wards, young)
	if err != nil {
		return st, fmt.Errorf("import: %w", err)
	}
	logger.L().Info("ingest_done", "wards", st.Wards, "young", st.Young)
	return st, nil
}

// EnsureInitialized：数据库中没有坊记录时，用本地文件做一次初始化导入
// 背景：简化部署流程，避免独立手动导入步骤；已有数据时不做任何事。
func EnsureInitialized(ctx context.Context, dst Importer, src population.Source) (bool, error) {
	n, err := dst.CountWards(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		logger.L().Debug("ingest_skip", "wards", n)
		return false, nil
	}
	logger.L().Info("ingest_initial_import")
	if _, err := ImportFrom(ctx, dst, src); err != nil {
		return false, err
	}
	return true, nil
}
