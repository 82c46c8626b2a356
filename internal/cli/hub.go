package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/api/ws"
	"github.com/gosuda/taskboard/internal/config"
	"github.com/gosuda/taskboard/internal/server"
	redisstore "github.com/gosuda/taskboard/internal/store/redis"
)

// HubCmd returns the command that runs the broadcast hub.
func HubCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hub",
		Short: "Run the broadcast hub",
		Long: `Accept board websocket connections and fan published task events out
to every socket joined to the event's room. Events arrive on POST /broadcast
and, when enabled, on the Redis broadcast channel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHub(cmd.Context())
		},
	}
}

func runHub(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hub := ws.NewHub(ws.Options{
		SendQueue:      cfg.Hub.SendQueue,
		PingInterval:   cfg.Hub.PingInterval,
		OriginPatterns: cfg.Hub.OriginPatterns,
	})

	if cfg.Hub.RedisIngress {
		pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()

		messages, unsubscribe, err := pubsub.Subscribe(ctx, cfg.Redis.Channel)
		if err != nil {
			return err
		}
		defer unsubscribe()

		log.Info().Str("channel", cfg.Redis.Channel).Msg("hub: consuming redis broadcast channel")
		go hub.Consume(ctx, messages)
	}

	return serve(ctx, server.NewHub(ctx, cfg, hub), "broadcast hub", cfg.Hub.Addr)
}
