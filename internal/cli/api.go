package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/config"
	"github.com/gosuda/taskboard/internal/notify"
	"github.com/gosuda/taskboard/internal/server"
	"github.com/gosuda/taskboard/internal/store/postgres"
	redisstore "github.com/gosuda/taskboard/internal/store/redis"
	"github.com/gosuda/taskboard/internal/tracker"
)

// APICmd returns the command that runs the tracker API server.
func APICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Run the tracker API server",
		Long: `Serve the project, sprint, task and board REST API. Every committed
task change is announced to the broadcast hub through the configured
notifier transport.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAPI(cmd.Context())
		},
	}
}

func runAPI(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	conns, err := maxConns(cfg.Database.MaxConns)
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := postgres.New(ctx, cfg.Database.DSN(), conns)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, closePublisher, err := newPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	notifier := notify.New(publisher, cfg.Notifier.Timeout)
	defer notifier.Close()

	srv := server.New(ctx, cfg, server.Services{
		Projects: tracker.NewProjectService(store, nil),
		Sprints:  tracker.NewSprintService(store),
		Tasks:    tracker.NewTaskService(store, notifier, nil),
		Ready:    store.Ping,
	})

	return serve(ctx, srv, "api server", cfg.Server.Addr)
}

// newPublisher builds the notifier transport selected by configuration.
func newPublisher(ctx context.Context, cfg *config.Config) (notify.Publisher, func(), error) {
	switch cfg.Notifier.Transport {
	case config.TransportRedis:
		pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("channel", cfg.Redis.Channel).Msg("notifier: publishing through redis")
		return notify.NewRedisPublisher(pubsub, cfg.Redis.Channel), func() { _ = pubsub.Close() }, nil
	case config.TransportHTTP:
		if cfg.Notifier.HubURL != "" {
			log.Info().Str("hub", cfg.Notifier.HubURL).Msg("notifier: publishing over http")
			client := &http.Client{Timeout: cfg.Notifier.Timeout}
			return notify.NewHTTPPublisher(cfg.Notifier.HubURL, client), func() {}, nil
		}
	}

	log.Info().Msg("notifier: board events disabled")
	return notify.Nop{}, func() {}, nil
}
