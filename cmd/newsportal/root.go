package main

import (
	"context"
	"database/sql"
	"sync"

	"newsportal/internal/infra/config"
	idb "newsportal/internal/infra/database"
	"newsportal/internal/infra/logger"

	"github.com/spf13/cobra"
)

type commandContext struct {
	configOnce sync.Once
	config     *config.AppConfig
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.AppConfig, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		logger.Init(cfg)
		c.config = cfg
	})
	return c.config, c.configErr
}

// openDB connects using the loaded configuration. The caller closes the pool.
func (c *commandContext) openDB(ctx context.Context) (*config.AppConfig, *sql.DB, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "newsportal",
		Short:         "News and articles site with category subscriptions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newWorkerCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newTasksCommand(ctx))
	rootCmd.AddCommand(newCategoriesCommand(ctx))
	rootCmd.AddCommand(newCreateSuperuserCommand(ctx))

	return rootCmd
}
