// Command tba-slackbot receives The Blue Alliance webhooks and turns them into
// per-channel competition notifications.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Starts the message worker and the API cache purge job.
//   - Exposes an HTTP server with the webhook intake, subscription admin,
//     /healthz, /readyz and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/frc5881/tba-slackbot/config"
	"github.com/frc5881/tba-slackbot/db"
	"github.com/frc5881/tba-slackbot/engine"
	"github.com/frc5881/tba-slackbot/server"
	"github.com/frc5881/tba-slackbot/subscription"
	"github.com/frc5881/tba-slackbot/tba"
	"github.com/frc5881/tba-slackbot/telemetry"
)

const cacheRetention = 7 * 24 * time.Hour

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateUpstream(); err != nil {
		slog.Error("upstream config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("tba-slackbot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	database, err := db.Open(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Versioned migrations first; the embedded schema covers databases that
	// predate schema_migrations.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := db.NewCacheStore(database)
	client := tba.NewClient(tba.Config{
		BaseURL:  cfg.TBABaseURL,
		AppID:    cfg.TBAAppID,
		AuthKey:  cfg.TBAAuthKey,
		Timeout:  cfg.TBATimeout,
		MinFresh: cfg.TBAMinFresh,
		Cache:    cache,
	})
	subscriptions := db.NewSubscriptionStore(database)

	var dispatcher engine.Dispatcher = engine.LogDispatcher{Logger: slog.Default()}
	if cfg.DispatchMode == config.DispatchOutbox {
		dispatcher = db.NewOutbox(database)
	}
	slog.Info("dispatcher selected", slog.String("mode", cfg.DispatchMode))

	eng := engine.New(engine.Config{
		API:        client,
		Fanout:     subscription.NewResolver(subscriptions, slog.Default()),
		Dispatcher: dispatcher,
		Resolver:   client.Resolver(),
	})
	worker := engine.NewWorker(eng, cfg.WorkerQueueSize, slog.Default())
	go worker.Run(ctx)
	go purgeCache(ctx, cache)

	go func() {
		if err := server.Start(ctx, cfg.HTTPAddr, server.Options{
			DB:            database,
			Subscriptions: subscriptions,
			Upstream:      client,
			Queue:         worker,
			WebhookSecret: cfg.TBAWebhookSecret,
		}); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}

// purgeCache hourly drops API cache entries that expired more than cacheRetention ago.
func purgeCache(ctx context.Context, cache *db.CacheStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cache.Purge(ctx, time.Now().Add(-cacheRetention))
			if err != nil {
				slog.Warn("api cache purge failed", slog.Any("err", err), slog.String("component", "db"))
				continue
			}
			if n > 0 {
				slog.Info("api cache purged", slog.Int64("rows", n), slog.String("component", "db"))
			}
		}
	}
}
