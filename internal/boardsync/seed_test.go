package boardsync_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskboard/internal/boardsync"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/tracker"
)

func TestFetchBoard(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAuth = r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization")
		sprint := int64(5)
		_ = json.NewEncoder(w).Encode(tracker.Board{
			ProjectID:  1,
			SprintID:   &sprint,
			Todo:       []*domain.Task{{ID: 1, Title: "a", Status: domain.TaskStatusTodo}},
			InProgress: []*domain.Task{{ID: 2, Title: "b", Status: domain.TaskStatusInProgress}},
			Completed:  []*domain.Task{{ID: 3, Title: "c", Status: domain.TaskStatusCompleted}},
		})
	}))
	t.Cleanup(srv.Close)

	sprint := int64(5)
	tasks, err := boardsync.FetchBoard(t.Context(), srv.Client(), srv.URL+"/", "tok", 1, &sprint)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/boards/1", gotPath)
	assert.Equal(t, "sprint_id=5", gotQuery)
	assert.Equal(t, "Bearer tok", gotAuth)

	require.Len(t, tasks, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{tasks[0].ID, tasks[1].ID, tasks[2].ID})
}

func TestFetchBoard_WholeProject(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"projectId":1,"sprintId":null,"todo":[],"inProgress":[],"completed":[]}`))
	}))
	t.Cleanup(srv.Close)

	tasks, err := boardsync.FetchBoard(t.Context(), srv.Client(), srv.URL, "", 1, nil)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, gotQuery)
}

func TestFetchBoard_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "forbidden", status: http.StatusForbidden, body: `{"title":"Forbidden"}`, wantErr: boardsync.ErrUnexpectedStatus},
		{name: "unauthorized", status: http.StatusUnauthorized, body: ``, wantErr: boardsync.ErrUnexpectedStatus},
		{name: "garbage", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			_, err := boardsync.FetchBoard(t.Context(), srv.Client(), srv.URL, "", 1, nil)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
