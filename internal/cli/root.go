package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Root returns the taskboard command with every subcommand attached.
func Root() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskboard",
		Short: "Taskboard - project tracker with live board updates",
		Long: `Taskboard runs the tracker API, the broadcast hub that pushes task
changes to open boards, and a terminal board watcher.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd.ErrOrStderr(), os.Getenv("TASKBOARD_LOG_LEVEL"), os.Getenv("TASKBOARD_LOG_FORMAT"))
		},
	}

	rootCmd.AddCommand(APICmd())
	rootCmd.AddCommand(HubCmd())
	rootCmd.AddCommand(WatchCmd())
	rootCmd.AddCommand(MigrateCmd())
	rootCmd.AddCommand(TokenCmd())

	return rootCmd
}

// setupLogging configures the global zerolog logger. Unknown levels fall back to info.
func setupLogging(out io.Writer, level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}
}

// stoppable is a server that can be started and shut down.
type stoppable interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv stoppable, name, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msgf("starting %s", name)
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msgf("shutting down %s", name)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func maxConns(n int) (int32, error) {
	if n < 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("database max_conns %d out of int32 range", n)
	}
	return int32(n), nil //nolint:gosec // bounds checked above
}
