// Package app assembles the clinic bot from configuration: storage, services,
// metrics and the Telegram runtime.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/m3rciful/logobot/core/bootstrap"
	"github.com/m3rciful/logobot/core/logger"
	tg "github.com/m3rciful/logobot/core/telegram"
	tgsender "github.com/m3rciful/logobot/core/telegram/sender"
	"github.com/m3rciful/logobot/internal/access"
	"github.com/m3rciful/logobot/internal/bot"
	"github.com/m3rciful/logobot/internal/exercises"
	"github.com/m3rciful/logobot/internal/metrics"
	"github.com/m3rciful/logobot/internal/schedule"
	"github.com/m3rciful/logobot/internal/storage"
	"github.com/m3rciful/logobot/internal/tasks"
	"github.com/m3rciful/logobot/migrations"
)

// App owns the database and the bot built on it.
type App struct {
	cfg      *Config
	infra    *bootstrap.Result
	registry *prometheus.Registry
	metrics  *metrics.BotMetrics
	bot      *bot.Bot
}

// Options replace parts of the pipeline, mostly for tests.
type Options struct {
	Bootstrap bootstrap.Options
	// Searcher overrides the YouTube client.
	Searcher exercises.Searcher
}

// New runs bootstrap and wires the services.
func New(ctx context.Context, cfg *Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	bopts := opts.Bootstrap
	bopts.Config = &cfg.Config
	bopts.Database = cfg.Database
	if bopts.Migrations == nil {
		bopts.Migrations = migrations.FS
		bopts.MigrationsDir = migrations.Dir
	}
	bopts.Seeders = append(bopts.Seeders, storage.HandleSeeder(cfg.Access.Handles))

	infra, err := bootstrap.Run(ctx, bopts)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewBotMetrics(reg)

	searcher := opts.Searcher
	if searcher == nil {
		searcher = youtubeSearcher(ctx, cfg.YouTube)
	}

	gate := access.NewGate(access.Options{
		Admins:  cfg.Telegram.AdminIDs,
		Store:   storage.NewAccessStore(infra.Handle),
		Metrics: m,
	})
	b := bot.New(bot.Deps{
		Gate:       gate,
		Schedule:   schedule.NewService(storage.NewScheduleStore(infra.Handle), nil),
		Exercises:  exercises.NewService(searcher, cfg.Exercises.Categories, cfg.YouTube.Results),
		Tasks:      tasks.NewService(storage.NewTaskStore(infra.Handle), nil),
		Hours:      cfg.Schedule,
		ChannelID:  cfg.Telegram.ChannelID,
		ChannelURL: cfg.Telegram.ChannelURL,
		Observe:    m.Handled,
	})

	return &App{cfg: cfg, infra: infra, registry: reg, metrics: m, bot: b}, nil
}

// youtubeSearcher returns nil when no key is configured; the exercises
// service then answers with empty lists.
func youtubeSearcher(ctx context.Context, cfg exercises.YouTubeConfig) exercises.Searcher {
	if cfg.APIKey == "" {
		logger.Warn(ctx, "app", "youtube.disabled", slog.String("status", "skip"))
		return nil
	}
	yt, err := exercises.NewYouTube(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "app", "youtube.init", slog.String("status", "fail"), slog.String("err", err.Error()))
		return nil
	}
	return yt
}

// Bot exposes the handlers.
func (a *App) Bot() *bot.Bot { return a.bot }

// TelegramRunOptions satisfies cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	var stopMetrics context.CancelFunc
	return tg.RunOptions{
		Config:   &a.cfg.Config,
		Registry: a.bot.Registry(),
		DispatcherOptions: tgsender.Options{
			QueueSize:  a.cfg.Sender.QueueSize,
			Workers:    a.cfg.Sender.Workers,
			MaxRetries: a.cfg.Sender.MaxRetries,
		},
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Config, a.bot.RateLimited()),
		Routes:      a.bot.Routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			if err := a.bot.OnStart(ctx, rt); err != nil {
				return err
			}
			var mctx context.Context
			mctx, stopMetrics = context.WithCancel(context.WithoutCancel(ctx))
			go func() {
				if err := metrics.Serve(mctx, a.cfg.Metrics.Listen, a.registry); err != nil {
					logger.Error(mctx, "metrics", "listen", slog.String("status", "fail"), slog.String("err", err.Error()))
				}
			}()
			return nil
		},
		OnStop: func(context.Context, tg.Runtime) error {
			if stopMetrics != nil {
				stopMetrics()
			}
			return nil
		},
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	if a.infra == nil || a.infra.DB == nil {
		return nil
	}
	return a.infra.DB.Close()
}
