package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/physics-tutor/app"
	"github.com/upb/physics-tutor/config"
	"github.com/upb/physics-tutor/repositories/postgres"
	"go.uber.org/zap"
)

func newImportCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy lessons from the content directory into the lesson database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := cfg.Database.Validate(); err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Content.Dir
			}

			factory, err := postgres.NewRepositoryFactory(cfg, logger)
			if err != nil {
				return err
			}

			// the server reads from Postgres after an import
			cfg.Content.Source = config.ContentSourcePostgres
			cfg.Content.Watch = false

			deps, err := app.NewDependenciesWithFactory(ctx, cfg, factory, logger)
			if err != nil {
				_ = factory.Close()
				return err
			}
			defer func() { _ = deps.Close(ctx) }()

			importer, err := deps.NewImporter(dir)
			if err != nil {
				return err
			}
			n, err := importer.Import(ctx)
			if err != nil {
				logger.Error("lesson import failed", zap.String("dir", dir), zap.Error(err))
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d lessons from %s\n", n, dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "lesson directory to import (default CONTENT_DIR)")
	return cmd
}
