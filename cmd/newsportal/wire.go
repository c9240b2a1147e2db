package main

import (
	"database/sql"

	"newsportal/internal/app"
	domainTelegram "newsportal/internal/domain/telegram"
	"newsportal/internal/infra/config"
	idb "newsportal/internal/infra/database"
	"newsportal/internal/infra/logger"
	"newsportal/internal/infra/mail"
	"newsportal/internal/infra/taskqueue"
	"newsportal/internal/infra/telegram"
)

// application is the wired object graph shared by the serve and worker commands.
type application struct {
	taskRepo      *idb.PostgresTaskRepository
	queue         *taskqueue.Queue
	notifications *app.NotificationService
	posts         *app.PostService
	categories    *app.CategoryService
	accounts      *app.AccountService
}

func buildApplication(cfg *config.AppConfig, db *sql.DB) (*application, error) {
	postRepo := idb.NewPostgresPostRepository(db)
	categoryRepo := idb.NewPostgresCategoryRepository(db)
	userRepo := idb.NewPostgresUserRepository(db)
	taskRepo := idb.NewPostgresTaskRepository(db)
	logger.Log.Debug("Repositories initialized.")

	queue := taskqueue.NewQueue(taskRepo, logger.Component("taskqueue"))

	var announcer domainTelegram.Client
	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramToken, logger.Component("telegram"))
		if err != nil {
			return nil, err
		}
		announcer = telegram.NewTelebotAdapter(bot)
	}

	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, logger.Component("mail"))
	notifications := app.NewNotificationService(postRepo, categoryRepo, sender, announcer, app.NotificationSettings{
		SiteURL:           cfg.SiteURL,
		FromEmail:         cfg.DefaultFromEmail,
		Deduplicate:       cfg.NotifyDeduplicate,
		TelegramChannelID: cfg.TelegramChannelID,
	}, logger.Component("notifications"))

	var hook app.CategoryHook = notifications
	if cfg.NotifyAsync {
		hook = app.NewAsyncCategoryHook(queue)
	}

	posts := app.NewPostService(postRepo, categoryRepo, hook, logger.Component("posts"))
	return &application{
		taskRepo:      taskRepo,
		queue:         queue,
		notifications: notifications,
		posts:         posts,
		categories:    app.NewCategoryService(categoryRepo, posts, logger.Component("categories")),
		accounts:      app.NewAccountService(userRepo, userRepo, cfg.SessionTTL, logger.Component("accounts")),
	}, nil
}
