package main

import (
	"os/signal"
	"syscall"

	"newsportal/internal/infra/logger"
	"newsportal/internal/infra/web"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, db, err := ctx.openDB(runCtx)
			if err != nil {
				return err
			}
			defer db.Close()
			logger.Log.Info("Database connection established successfully.")

			if migrateFirst {
				if err := migrateUp(db); err != nil {
					return err
				}
			}

			a, err := buildApplication(cfg, db)
			if err != nil {
				return err
			}

			srv := web.NewServer(web.Services{
				Posts:      a.posts,
				Categories: a.categories,
				Accounts:   a.accounts,
				Tasks:      a.queue,
			}, web.Settings{
				SecureCookies: cfg.Environment == "production",
			}, logger.Component("web"))

			logger.Log.WithFields(logrus.Fields{
				"site_url":     cfg.SiteURL,
				"notify_async": cfg.NotifyAsync,
				"telegram":     cfg.TelegramEnabled(),
			}).Info("Application setup complete.")
			return srv.ListenAndServe(runCtx, cfg.HTTPAddr)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "Apply pending migrations before serving")
	return cmd
}
