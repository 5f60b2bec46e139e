// 数据导入工具：读取本地人口数据文件并批量写入 PostgreSQL
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"demographic-map/internal/config"
	"demographic-map/internal/ingest"
	"demographic-map/internal/logger"
	"demographic-map/internal/migrate"
	"demographic-map/internal/population"
	"demographic-map/internal/store"
	"demographic-map/internal/utils"
)

func main() {
	config.LoadDotEnv()
	logger.Setup()
	if err := newRootCommand().Execute(); err != nil {
		logger.L().Error("import_error", "err", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		dir        string
		dryRun     bool
		schemaOnly bool
	)
	cmd := &cobra.Command{
		Use:           "pop-import",
		Short:         "Import ward boundaries and population tables into PostgreSQL",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			src := population.FileSource{Dir: dir}
			if dryRun {
				return check(ctx, cmd, src)
			}
			db, err := utils.OpenPostgresFromEnv()
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()
			if err := migrate.EnsureSchema(ctx, db); err != nil {
				return err
			}
			if schemaOnly {
				logger.L().Info("schema_ok")
				return nil
			}
			st, err := ingest.ImportFrom(ctx, store.AttachDB(db), src)
			if err != nil {
				return err
			}
			logger.L().Info("import_ok", "dir", dir, "wards", st.Wards, "young", st.Young)
			return nil
		},
	}
	def := os.Getenv("DATA_DIR")
	if def == "" {
		def = "data/vn"
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", def, "directory holding the boundary GeoJSON and population CSV files")
	f.BoolVar(&dryRun, "dry-run", false, "read and join the files, print row counts, write nothing")
	f.BoolVar(&schemaOnly, "schema-only", false, "create the tables and exit")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "schema-only")
	return cmd
}

// check：只读取并内连接文件，输出行数
func check(ctx context.Context, cmd *cobra.Command, src population.FileSource) error {
	wards, err := src.Wards(ctx)
	if err != nil {
		return err
	}
	young, err := src.YoungPop(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wards=%d young=%d\n", len(wards), len(young))
	return nil
}
