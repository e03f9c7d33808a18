// Command tbactl manages subscriptions and replays saved webhook payloads
// against the live upstream API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/frc5881/tba-slackbot/cmd/tbactl/commands"
	"github.com/frc5881/tba-slackbot/config"
	"github.com/frc5881/tba-slackbot/db"
	"github.com/frc5881/tba-slackbot/engine"
	"github.com/frc5881/tba-slackbot/subscription"
	"github.com/frc5881/tba-slackbot/tba"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}

	a := &app{cfg: cfg, logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))}
	defer a.close()

	cli := commands.New(a)
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)
	if err := cli.Execute(ctx); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}
	return 0
}

// app connects to the database on first use.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
}

func (a *app) database() (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	database, err := db.Open(a.cfg.DBDsn)
	if err != nil {
		return nil, err
	}
	a.db = database
	return database, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *app) store() (*db.SubscriptionStore, error) {
	database, err := a.database()
	if err != nil {
		return nil, err
	}
	return db.NewSubscriptionStore(database), nil
}

func (a *app) client() (*tba.Client, error) {
	if err := a.cfg.ValidateUpstream(); err != nil {
		return nil, err
	}
	return tba.NewClient(tba.Config{
		BaseURL:  a.cfg.TBABaseURL,
		AppID:    a.cfg.TBAAppID,
		AuthKey:  a.cfg.TBAAuthKey,
		Timeout:  a.cfg.TBATimeout,
		MinFresh: a.cfg.TBAMinFresh,
		Logger:   a.logger,
	}), nil
}

func (a *app) Follow(ctx context.Context, s subscription.Subscription) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	return store.Follow(ctx, s)
}

func (a *app) Unfollow(ctx context.Context, teamID, channelID string, frcTeam int) (bool, error) {
	store, err := a.store()
	if err != nil {
		return false, err
	}
	return store.Unfollow(ctx, teamID, channelID, frcTeam)
}

func (a *app) Following(ctx context.Context, teamID, channelID string) ([]subscription.Subscription, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	return store.ForChannel(ctx, teamID, channelID)
}

// Replay runs raw through a fresh engine backed by the real subscriptions
// and collects the notifications instead of delivering them.
func (a *app) Replay(ctx context.Context, raw []byte) ([]engine.Notification, error) {
	msg, err := engine.Decode(raw)
	if err != nil {
		return nil, err
	}
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	var notes []engine.Notification
	eng := engine.New(engine.Config{
		API:      client,
		Fanout:   subscription.NewResolver(store, a.logger),
		Resolver: client.Resolver(),
		Logger:   a.logger,
		Dispatcher: engine.DispatcherFunc(func(_ context.Context, n engine.Notification) error {
			notes = append(notes, n)
			return nil
		}),
	})
	if err := eng.Process(ctx, msg); err != nil {
		return nil, err
	}
	return notes, nil
}

func (a *app) Migrate(ctx context.Context) error {
	database, err := a.database()
	if err != nil {
		return err
	}
	if err := db.RunMigrations(database); err != nil {
		a.logger.Warn("versioned migrations failed, applying embedded schema", slog.Any("err", err))
		return db.Migrate(ctx, database)
	}
	return nil
}
