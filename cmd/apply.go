package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/database"
	"github.com/ekaya-inc/ontoschema/pkg/render"
)

func newApplyCmd() *cobra.Command {
	var (
		migrationsDir string
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Write the schema as a migration and apply it to PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if migrationsDir != "" {
				cfg.Database.MigrationsDir = migrationsDir
			}

			ws, err := compile(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			sql := render.NewSQLRenderer(logger)
			up, err := sql.Render(ws)
			if err != nil {
				return err
			}
			down := sql.RenderDrop(ws)
			name := strings.TrimSuffix(filepath.Base(ws.SourcePath), filepath.Ext(ws.SourcePath))

			if dryRun {
				fmt.Fprint(cmd.OutOrStdout(), string(up))
				return nil
			}

			files, err := database.ApplySchema(cmd.Context(), &cfg.Database, name, up, down, logger)
			if err != nil {
				return err
			}
			logger.Info("Schema applied",
				zap.Uint64("version", files.Version),
				zap.Int("tables", len(ws.Schema.Tables)))
			return nil
		},
	}

	cmd.Flags().StringVar(&migrationsDir, "migrations", "", "directory for migration files (overrides database.migrations_dir)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the up migration instead of applying it")
	return cmd
}
