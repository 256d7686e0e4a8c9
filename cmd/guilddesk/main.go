package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/snowfall-guild/guilddesk/internal/app"
	"github.com/snowfall-guild/guilddesk/internal/auth"
	"github.com/snowfall-guild/guilddesk/internal/mail"
	"github.com/snowfall-guild/guilddesk/internal/observability"
	"github.com/snowfall-guild/guilddesk/internal/platform/cache"
	"github.com/snowfall-guild/guilddesk/internal/rbac"
	"github.com/snowfall-guild/guilddesk/internal/shared"
	"github.com/snowfall-guild/guilddesk/internal/users"
	"github.com/snowfall-guild/guilddesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "guilddesk_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	directory := users.NewDirectory()
	lockout := auth.NewLockout()

	authService := auth.NewService(directory, lockout)
	authHandler := auth.NewHandler(logger, authService, directory, sessionManager, csrfManager, metrics)

	rbacMiddleware := rbac.Middleware{
		Resolve: func(ctx context.Context, userID string) (rbac.Principal, bool) {
			user, ok := directory.FindByID(ctx, userID)
			if !ok {
				return nil, false
			}
			return user, true
		},
		Logger: logger,
	}

	usersHandler := users.NewHandler(logger, directory, rbacMiddleware)

	mailStore := mail.NewStore(directory)
	composer := mail.NewComposer(mailStore, directory)
	mailHandler := mail.NewHandler(logger, mailStore, composer, directory, rbacMiddleware, metrics)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(asynqClient, inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		UsersHandler:   usersHandler,
		MailHandler:    mailHandler,
		JobHandler:     jobHandler,
		RBACMiddleware: rbacMiddleware,
		Metrics:        metrics,
	})

	// Mailbox and directory state live in this process, so the queue
	// worker runs in-process rather than as a separate binary.
	mailJobs := jobs.NewMailJobs(composer, logger)

	reminderTask, err := jobs.NewOverdueRemindersTask("scheduler")
	if err != nil {
		logger.Error("build reminder task", slog.Any("error", err))
		os.Exit(1)
	}
	reportTask, err := jobs.NewSystemReportTask("monthly")
	if err != nil {
		logger.Error("build report task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskOverdueReminders, Handler: mailJobs.HandleOverdueReminders},
			{Type: jobs.TaskSystemReport, Handler: mailJobs.HandleSystemReport},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReminderCron, Task: reminderTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.ReportCron, Task: reportTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	go func() {
		if err := worker.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("worker run", slog.Any("error", err))
			stop()
		}
	}()

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
