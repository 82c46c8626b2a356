package boardsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/tracker"
)

// ErrUnexpectedStatus is returned when the API answers a board fetch with a non-200 status.
var ErrUnexpectedStatus = errors.New("boardsync: unexpected status")

// FetchBoard loads the current tasks of a board from the API server at
// apiURL. The result seeds a Cache before the hub connection is opened.
func FetchBoard(ctx context.Context, client *http.Client, apiURL, token string, projectID int64, sprintID *int64) ([]domain.Task, error) {
	if client == nil {
		client = http.DefaultClient
	}

	endpoint := strings.TrimRight(apiURL, "/") + "/api/v1/boards/" + strconv.FormatInt(projectID, 10)
	if sprintID != nil {
		endpoint += "?" + url.Values{"sprint_id": {strconv.FormatInt(*sprintID, 10)}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("boardsync.FetchBoard: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("boardsync.FetchBoard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("boardsync.FetchBoard: %w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var board tracker.Board
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFrameSize*8)).Decode(&board); err != nil {
		return nil, fmt.Errorf("boardsync.FetchBoard: decode: %w", err)
	}

	tasks := make([]domain.Task, 0, len(board.Todo)+len(board.InProgress)+len(board.Completed))
	for _, column := range [][]*domain.Task{board.Todo, board.InProgress, board.Completed} {
		for _, t := range column {
			if t != nil {
				tasks = append(tasks, *t)
			}
		}
	}
	return tasks, nil
}
