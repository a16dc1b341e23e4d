package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/history"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/notify"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/scheduler"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/trigger"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	once := flag.Bool("once", false, "build the index once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	os.Exit(run(cfg, *once))
}

func run(cfg *config.Config, once bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checker := health.NewChecker()
	opts := []indexer.Option{indexer.WithMetrics(m)}

	if cfg.Redis.Enabled {
		rc, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			return apperrors.ExitFailure
		}
		defer rc.Close()
		opts = append(opts, indexer.WithLocker(indexer.NewRedisLocker(rc, cfg.Redis.LockKey, cfg.Redis.LockTTL)))
		checker.Register("redis", health.PingCheck(rc.Ping))
		slog.Info("redis run lock enabled", "key", cfg.Redis.LockKey)
	}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			return apperrors.ExitFailure
		}
		defer db.Close()
		store := history.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate run history", "error", err)
			return apperrors.ExitFailure
		}
		if latest, err := store.Latest(ctx); err != nil {
			slog.Warn("failed to read run history", "error", err)
		} else if latest != nil {
			slog.Info("previous run found",
				"run_id", latest.RunID,
				"status", latest.Status,
				"finished_at", latest.FinishedAt,
			)
		}
		if last, err := store.LastSuccess(ctx); err != nil {
			slog.Warn("failed to read last successful run", "error", err)
		} else {
			opts = append(opts, indexer.WithLastSuccess(last))
		}
		opts = append(opts, indexer.WithRecorder(store))
		checker.Register("postgres", health.PingCheck(db.Ping))
		slog.Info("run history enabled", "database", cfg.Postgres.Database)
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		opts = append(opts, indexer.WithNotifier(notify.New(producer)))
		slog.Info("build notifications enabled", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	engine := indexer.NewEngine(cfg.Job, opts...)
	runFn := func(ctx context.Context, source string) error {
		_, err := engine.Run(ctx, source)
		return err
	}

	if once {
		slog.Info("running index build once",
			"dataset_dir", cfg.Job.DatasetDir,
			"output_dir", cfg.Job.OutputDir,
		)
		if err := runFn(ctx, "manual"); err != nil {
			slog.Error("index build failed", "error", err)
			return apperrors.ExitCode(err)
		}
		return apperrors.ExitOK
	}

	sched, err := scheduler.New(cfg.Scheduler.Schedule, cfg.Scheduler.Timezone, cfg.Scheduler.RunImmediately, runFn)
	if err != nil {
		slog.Error("failed to create scheduler", "error", err)
		return apperrors.ExitFailure
	}
	checker.Register("last_build", health.FreshnessCheck(engine.LastSuccess, 25*time.Hour))

	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, m, map[string]http.Handler{
			"/health/live":  checker.LiveHandler(),
			"/health/ready": checker.ReadyHandler(),
		})
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Start(gctx)
	})
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexRebuild, trigger.HandleRebuild(runFn))
		g.Go(func() error {
			return consumer.Start(gctx)
		})
		slog.Info("rebuild trigger listening",
			"topic", cfg.Kafka.Topics.IndexRebuild,
			"group", cfg.Kafka.ConsumerGroup,
		)
	}

	slog.Info("reverse index job ready", "schedule", cfg.Scheduler.Schedule)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("job stopped with error", "error", err)
		return apperrors.ExitFailure
	}
	slog.Info("reverse index job stopped")
	return apperrors.ExitOK
}
