package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/planbot/internal/ai"
	"github.com/hray3182/planbot/internal/bot"
	"github.com/hray3182/planbot/internal/config"
	"github.com/hray3182/planbot/internal/conversation"
	"github.com/hray3182/planbot/internal/database"
	"github.com/hray3182/planbot/internal/metrics"
	"github.com/hray3182/planbot/internal/parser"
	"github.com/hray3182/planbot/internal/repository"
	"github.com/hray3182/planbot/internal/scheduler"
	"github.com/hray3182/planbot/internal/storage"
	"github.com/hray3182/planbot/internal/timezone"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// snapshotter persists both collections.
type snapshotter interface {
	repository.PlanSnapshotter
	repository.TimezoneSnapshotter
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
	log := slog.Default().With("component", "main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var snap snapshotter
	if cfg.DatabaseURI != "" {
		db, err := database.New(ctx, cfg.DatabaseURI)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("connected to database")

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		snap = database.NewSnapshotter(db)
	} else {
		file, err := storage.NewFile(cfg.DataDir)
		if err != nil {
			return err
		}
		log.Info("using file storage", "dir", cfg.DataDir)
		snap = file
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	plans := repository.NewPlanRepository(ctx, snap, m)
	zones, err := timezone.NewResolver(repository.NewTimezoneRepository(ctx, snap, m), cfg.DefaultTimezone)
	if err != nil {
		return err
	}

	chain := parser.Chain{parser.Rules{}}
	if cfg.AIEnabled() {
		chain = append(chain, ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel))
		log.Info("AI parser enabled", "model", cfg.AIModel)
	} else {
		log.Info("AI parser not configured, using rule-based parsing only")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return err
	}
	sender := bot.NewSender(api)

	sched := scheduler.New(plans, zones, sender, scheduler.Options{
		Interval:   cfg.PollInterval,
		DigestTime: &cfg.DigestTime,
		Metrics:    m,
	})

	cooldown := cfg.RateLimitCooldown
	if cooldown == 0 {
		// Zero in the environment turns the limiter off.
		cooldown = -1
	}
	engine, err := conversation.New(plans, zones, sender, conversation.Options{
		Cooldown: cooldown,
		MaxPlans: cfg.MaxPlansPerUser,
		Parser:   chain,
		Notifier: sched,
		Metrics:  m,
	})
	if err != nil {
		return err
	}
	b := bot.New(api, engine)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Start(gctx)
	})
	g.Go(func() error {
		err := b.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr, reg)
		})
	}

	log.Info("planner started")
	err = g.Wait()
	log.Info("shutting down", "grace", cfg.ShutdownGrace)
	if !b.Drain(cfg.ShutdownGrace) {
		log.Warn("in-flight messages did not finish within the grace period")
	}
	return err
}
