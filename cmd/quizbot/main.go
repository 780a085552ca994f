// Command quizbot runs the quiz administration Telegram bot.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quizdesk/quizbot/core/buildinfo"
	"github.com/quizdesk/quizbot/core/config"
	"github.com/quizdesk/quizbot/core/database"
	"github.com/quizdesk/quizbot/core/logger"
	"github.com/quizdesk/quizbot/core/telegram"
	"github.com/quizdesk/quizbot/core/telegram/sender"
	"github.com/quizdesk/quizbot/internal/bank"
	"github.com/quizdesk/quizbot/internal/bot"
	"github.com/quizdesk/quizbot/internal/results"
	"github.com/quizdesk/quizbot/internal/session"
	"github.com/quizdesk/quizbot/internal/workflow"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "quizbot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	start := time.Now()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logger.L.Info("starting",
		slog.String("event", "startup"),
		slog.String("version", buildinfo.Version),
		slog.String("commit", buildinfo.Commit),
		slog.String("config", cfgPath),
	)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}

	banks, err := bank.NewFileStore(cfg.Banks.Dir)
	if err != nil {
		return fmt.Errorf("open bank store: %w", err)
	}
	store := results.NewSQLStore(db)
	sessions := session.NewStore()

	tg, err := telegram.NewBot(cfg)
	if err != nil {
		return err
	}
	dispatcher := sender.NewDispatcher(sender.Options{})
	defer dispatcher.Close()

	engine := workflow.NewEngine(sessions, banks, store, bot.NewNotifier(tg, dispatcher))
	app := bot.New(tg, engine, sessions, banks, cfg.Telegram.AdminIDs)
	app.SetupCommands()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.L.Info("app ready",
		slog.String("event", "ready"),
		slog.Duration("startup_duration", logger.Took(start)),
	)
	err = telegram.Run(ctx, tg, app.Middlewares(), app.Routes())

	logger.L.Info("shutting down",
		slog.String("event", "shutdown"),
		slog.String("status", logger.Status(err)),
	)
	return err
}
