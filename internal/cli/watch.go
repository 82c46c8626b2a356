package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/boardsync"
	"github.com/gosuda/taskboard/internal/domain"
)

// WatchCmd returns the command that follows a board live in the terminal.
func WatchCmd() *cobra.Command {
	var (
		apiURL    string
		hubURL    string
		token     string
		projectID int64
		sprintID  int64
		reconnect time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a board live",
		Long: `Load a board from the API server, join its room on the broadcast hub and
print every task change as it arrives. Reconnects automatically and re-joins
the board after every reconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if projectID <= 0 {
				return errors.New("--project is required")
			}
			if token == "" {
				token = os.Getenv("TASKBOARD_TOKEN")
			}

			var sprint *int64
			if sprintID > 0 {
				sprint = &sprintID
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runWatch(ctx, cmd.OutOrStdout(), watchOptions{
				apiURL:    apiURL,
				hubURL:    hubURL,
				token:     token,
				projectID: projectID,
				sprintID:  sprint,
				reconnect: reconnect,
			})
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "API server base URL")
	cmd.Flags().StringVar(&hubURL, "hub", "ws://localhost:8090/ws", "Broadcast hub websocket URL")
	cmd.Flags().StringVar(&token, "token", "", "API access token (default: $TASKBOARD_TOKEN)")
	cmd.Flags().Int64Var(&projectID, "project", 0, "Project to watch (required)")
	cmd.Flags().Int64Var(&sprintID, "sprint", 0, "Sprint to watch; 0 watches the project's sprint-less board")
	cmd.Flags().DurationVar(&reconnect, "reconnect", 2*time.Second, "Minimum delay between hub reconnects")

	return cmd
}

type watchOptions struct {
	apiURL    string
	hubURL    string
	token     string
	projectID int64
	sprintID  *int64
	reconnect time.Duration
}

func runWatch(ctx context.Context, out io.Writer, opts watchOptions) error {
	client := &http.Client{Timeout: 10 * time.Second}
	room := domain.RoomFor(opts.projectID, opts.sprintID)

	tasks, err := boardsync.FetchBoard(ctx, client, opts.apiURL, opts.token, opts.projectID, opts.sprintID)
	if err != nil {
		return err
	}

	cache := boardsync.NewCache()
	cache.Replace(tasks)
	printBoard(out, room, cache.Snapshot())

	connects := 0
	syncer := boardsync.New(boardsync.WebsocketDialer{URL: opts.hubURL}, cache, boardsync.Options{
		ReconnectInterval: opts.reconnect,
		OnChange: func(c boardsync.Change) {
			printChange(out, c)
		},
		// The hub does not replay events, so the board is reloaded once the
		// room is joined. Only reloads after a reconnect are printed.
		OnConnect: func(ctx context.Context) {
			connects++
			fresh, err := boardsync.FetchBoard(ctx, client, opts.apiURL, opts.token, opts.projectID, opts.sprintID)
			if err != nil {
				log.Warn().Err(err).Msg("watch: reload board")
				return
			}
			cache.Replace(fresh)
			if connects > 1 {
				printBoard(out, room, cache.Snapshot())
			}
		},
	})

	if err := syncer.SetView(ctx, &opts.projectID, opts.sprintID); err != nil {
		return err
	}

	runErr := syncer.Run(ctx)
	if err := syncer.Close(); err != nil {
		log.Debug().Err(err).Msg("watch: close")
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

var (
	createdColor = color.New(color.FgHiGreen)
	updatedColor = color.New(color.FgYellow)
	deletedColor = color.New(color.FgRed)
	dimColor     = color.New(color.Faint)
)

func printBoard(out io.Writer, room domain.Room, tasks []domain.Task) {
	fmt.Fprintf(out, "%s (%d tasks)\n", color.New(color.Bold).Sprint(room.String()), len(tasks))
	for i := range tasks {
		fmt.Fprintf(out, "  %s\n", describeTask(&tasks[i]))
	}
}

// printChange writes one line per event. Events that left the cache unchanged are dimmed.
func printChange(out io.Writer, c boardsync.Change) {
	var line string
	switch c.Kind {
	case domain.TaskCreated:
		line = createdColor.Sprint("+ ") + describeTask(c.Task)
	case domain.TaskUpdated:
		line = updatedColor.Sprint("~ ") + describeTask(c.Task)
	case domain.TaskDeleted:
		line = deletedColor.Sprintf("- #%d", c.TaskID)
	default:
		line = fmt.Sprintf("? %s", c.Kind)
	}

	if !c.Applied {
		line = dimColor.Sprint(line + " (no change)")
	}
	fmt.Fprintln(out, line)
}

func describeTask(t *domain.Task) string {
	if t == nil {
		return "#?"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#%d [%s/%s] %s", t.ID, t.Status, t.Priority, t.Title)
	if t.AssigneeID != 0 {
		fmt.Fprintf(&b, " @%d", t.AssigneeID)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, " {%s}", strings.Join(t.Tags, ","))
	}
	return b.String()
}
