// Package main provides the batch composer: it generates N messages for one
// trigger event and streams them to a file, the Redpanda feed, and/or the
// Postgres archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ConnorBritain/pidgeon/internal/batch"
	"github.com/ConnorBritain/pidgeon/internal/compose"
	"github.com/ConnorBritain/pidgeon/internal/infrastructure/postgres"
	"github.com/ConnorBritain/pidgeon/internal/infrastructure/redpanda"
	"github.com/ConnorBritain/pidgeon/internal/observability/metrics"
	"github.com/ConnorBritain/pidgeon/internal/resolve"
	"github.com/ConnorBritain/pidgeon/internal/schema"
	"github.com/ConnorBritain/pidgeon/pkg/workerpool"
)

func main() {
	var (
		triggerEvent = flag.String("trigger-event", "ADT_A01", "trigger event code to compose")
		count        = flag.Int("count", 100, "number of messages to generate")
		seed         = flag.Int64("seed", time.Now().UnixNano(), "base seed; message i uses seed+i")
		profile      = flag.String("profile", "", "vendor profile: dense or sparse")
		out          = flag.String("out", "-", "output file, - for stdout, empty to disable")
		workers      = flag.Int("workers", 8, "concurrent composition workers")
		schemaDir    = flag.String("schema-dir", "./schemas", "schema definition directory")
	)
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := run(logger, *triggerEvent, *count, *seed, *profile, *out, *workers, *schemaDir); err != nil {
		logger.Fatal("batch run failed", zap.Error(err))
	}
}

func run(logger *zap.Logger, triggerEvent string, count int, seed int64, profile, out string, workers int, schemaDir string) error {
	ctx := context.Background()

	memStore, err := schema.LoadDir(schemaDir, logger)
	if err != nil {
		return fmt.Errorf("load schema dir %s: %w", schemaDir, err)
	}
	store := schema.NewCachedStore(memStore, schema.DefaultCacheSizes())

	m := metrics.New()
	composer := compose.NewComposer(store, resolve.DefaultChain(nil), logger).WithMetrics(m)

	sinks, cleanup, err := buildSinks(ctx, out, logger, m)
	if err != nil {
		return err
	}
	defer cleanup()

	var opts []compose.Option
	switch profile {
	case "":
	case "dense":
		opts = append(opts, compose.WithProfile(compose.ProfileDense))
	case "sparse":
		opts = append(opts, compose.WithProfile(compose.ProfileSparse))
	default:
		return fmt.Errorf("unknown profile %q", profile)
	}

	runner := batch.NewRunner(composer, workerpool.Config{
		Workers:         workers,
		QueueSize:       workers * 64,
		ShutdownTimeout: 30 * time.Second,
	}, logger, sinks...).WithMetrics(m)

	report, err := runner.Run(ctx, batch.RunSpec{
		TriggerEvent: triggerEvent,
		Count:        count,
		BaseSeed:     seed,
		Options:      opts,
	})
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d messages failed to compose", report.Failed, count)
	}
	return nil
}

// buildSinks assembles output sinks from the flag and environment: a file or
// stdout, the Redpanda feed when BROKERS is set, the Postgres archive when
// DATABASE_URL is set.
func buildSinks(ctx context.Context, out string, logger *zap.Logger, m *metrics.Metrics) ([]batch.Sink, func(), error) {
	var (
		sinks    []batch.Sink
		cleanups []func()
	)
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	switch out {
	case "":
	case "-":
		sinks = append(sinks, &batch.WriterSink{W: os.Stdout})
	default:
		f, err := os.Create(out)
		if err != nil {
			return nil, nil, fmt.Errorf("create output file: %w", err)
		}
		cleanups = append(cleanups, func() { f.Close() })
		sinks = append(sinks, &batch.WriterSink{W: f})
	}

	if brokers := os.Getenv("BROKERS"); brokers != "" {
		cfg := redpanda.DefaultProducerConfig()
		cfg.Brokers = strings.Split(brokers, ",")
		producer, err := redpanda.NewProducer(cfg, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("create feed producer: %w", err)
		}
		producer.WithMetrics(m)

		admin, err := redpanda.NewAdmin(cfg.Brokers, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("create feed admin: %w", err)
		}
		if err := admin.EnsureTopics(ctx); err != nil {
			admin.Close()
			cleanup()
			return nil, nil, fmt.Errorf("ensure feed topics: %w", err)
		}
		admin.Close()

		cleanups = append(cleanups, producer.Close)
		sinks = append(sinks, &batch.FeedSink{Producer: producer})
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			cleanup()
			return nil, nil, fmt.Errorf("database ping: %w", err)
		}
		cleanups = append(cleanups, pool.Close)
		sinks = append(sinks, &batch.ArchiveSink{
			Log:     postgres.NewMessageLog(pool, logger),
			Version: "2.3",
		})
	}

	if len(sinks) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("no output configured: set -out, BROKERS, or DATABASE_URL")
	}
	return sinks, cleanup, nil
}
