package tracker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/tracker"
)

type taskFixture struct {
	store    *memStore
	notifier *recordingNotifier
	svc      *tracker.TaskService
	project  *domain.Project
	sprint   *domain.Sprint
}

func newTaskFixture() *taskFixture {
	store := newMemStore()
	n := &recordingNotifier{}
	p := store.seedProject(domain.Project{Name: "p", OwnerID: 1, VisibleTo: []int64{2}})
	sp := store.seedSprint(domain.Sprint{ProjectID: p.ID, Name: "s", Status: domain.SprintActive})
	return &taskFixture{
		store:    store,
		notifier: n,
		svc:      tracker.NewTaskService(store, n, clock),
		project:  p,
		sprint:   sp,
	}
}

func TestTaskService_Create(t *testing.T) {
	t.Parallel()

	f := newTaskFixture()
	task, err := f.svc.Create(context.Background(), 2, tracker.TaskInput{
		Title:     "  write docs ",
		ProjectID: f.project.ID,
		SprintID:  &f.sprint.ID,
		Tags:      []string{"docs"},
		Size:      ptr(3.0),
	})
	require.NoError(t, err)

	assert.Equal(t, "write docs", task.Title)
	assert.Equal(t, domain.TaskStatusTodo, task.Status)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Equal(t, int64(2), task.CreatedBy)
	assert.Equal(t, fixedNow, task.CreatedAt)

	stored := f.store.rawTask(task.ID)
	assert.Equal(t, task.Title, stored.Title)

	assert.Equal(t, []notification{
		{kind: domain.TaskCreated, projectID: f.project.ID, sprintID: &f.sprint.ID, taskID: task.ID},
	}, f.notifier.all())
}

func TestTaskService_CreateRejected(t *testing.T) {
	t.Parallel()

	f := newTaskFixture()
	otherProject := f.store.seedProject(domain.Project{Name: "other", OwnerID: 1})
	foreignSprint := f.store.seedSprint(domain.Sprint{ProjectID: otherProject.ID, Name: "x"})

	tests := []struct {
		name    string
		userID  int64
		in      tracker.TaskInput
		wantErr error
	}{
		{name: "no title", userID: 1, in: tracker.TaskInput{ProjectID: f.project.ID}, wantErr: domain.ErrInvalidInput},
		{name: "bad status", userID: 1, in: tracker.TaskInput{Title: "t", ProjectID: f.project.ID, Status: "done"}, wantErr: domain.ErrInvalidInput},
		{name: "bad priority", userID: 1, in: tracker.TaskInput{Title: "t", ProjectID: f.project.ID, Priority: "urgent"}, wantErr: domain.ErrInvalidInput},
		{name: "negative size", userID: 1, in: tracker.TaskInput{Title: "t", ProjectID: f.project.ID, Size: ptr(-1.0)}, wantErr: domain.ErrInvalidInput},
		{name: "unknown project", userID: 1, in: tracker.TaskInput{Title: "t", ProjectID: 404}, wantErr: domain.ErrNotFound},
		{name: "no access", userID: 3, in: tracker.TaskInput{Title: "t", ProjectID: f.project.ID}, wantErr: domain.ErrForbidden},
		{name: "sprint of other project", userID: 1, in: tracker.TaskInput{Title: "t", ProjectID: f.project.ID, SprintID: &foreignSprint.ID}, wantErr: domain.ErrInvalidInput},
		{name: "unknown sprint", userID: 1, in: tracker.TaskInput{Title: "t", ProjectID: f.project.ID, SprintID: ptr[int64](404)}, wantErr: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.userID, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, f.notifier.all(), "failed mutations must not notify")
}

func TestTaskService_Update(t *testing.T) {
	t.Parallel()

	t.Run("applies patch and notifies new room", func(t *testing.T) {
		t.Parallel()

		f := newTaskFixture()
		task := f.store.seedTask(domain.Task{Title: "t", ProjectID: f.project.ID})

		got, err := f.svc.Update(context.Background(), 1, task.ID, tracker.TaskPatch{
			Status:   ptr(domain.TaskStatusInProgress),
			SprintID: &f.sprint.ID,
			Tags:     []string{"a", "b"},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusInProgress, got.Status)
		require.NotNil(t, got.SprintID)
		assert.Equal(t, f.sprint.ID, *got.SprintID)
		assert.Equal(t, []string{"a", "b"}, f.store.rawTask(task.ID).Tags)

		// Announced to the sprint room only, not the backlog room it left.
		assert.Equal(t, []notification{
			{kind: domain.TaskUpdated, projectID: f.project.ID, sprintID: &f.sprint.ID, taskID: task.ID},
		}, f.notifier.all())
	})

	t.Run("sprint zero moves to backlog", func(t *testing.T) {
		t.Parallel()

		f := newTaskFixture()
		task := f.store.seedTask(domain.Task{Title: "t", ProjectID: f.project.ID, SprintID: &f.sprint.ID})

		got, err := f.svc.Update(context.Background(), 1, task.ID, tracker.TaskPatch{SprintID: ptr[int64](0)})
		require.NoError(t, err)
		assert.Nil(t, got.SprintID)
		assert.Nil(t, f.store.rawTask(task.ID).SprintID)
		assert.Equal(t, "board:1:all", domain.RoomFor(got.ProjectID, got.SprintID).String())
	})

	t.Run("rejected updates do not notify", func(t *testing.T) {
		t.Parallel()

		f := newTaskFixture()
		task := f.store.seedTask(domain.Task{Title: "t", ProjectID: f.project.ID})

		_, err := f.svc.Update(context.Background(), 3, task.ID, tracker.TaskPatch{Title: ptr("x")})
		require.ErrorIs(t, err, domain.ErrForbidden)

		_, err = f.svc.Update(context.Background(), 1, task.ID, tracker.TaskPatch{Status: ptr(domain.TaskStatus("archived"))})
		require.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = f.svc.Update(context.Background(), 1, 404, tracker.TaskPatch{})
		require.ErrorIs(t, err, domain.ErrNotFound)

		assert.Equal(t, "t", f.store.rawTask(task.ID).Title)
		assert.Empty(t, f.notifier.all())
	})
}

func TestTaskService_Delete(t *testing.T) {
	t.Parallel()

	f := newTaskFixture()
	task := f.store.seedTask(domain.Task{Title: "t", ProjectID: f.project.ID, SprintID: &f.sprint.ID})

	require.NoError(t, f.svc.Delete(context.Background(), 2, task.ID))
	require.NotNil(t, f.store.rawTask(task.ID).DeletedAt)

	assert.Equal(t, []notification{
		{kind: domain.TaskDeleted, projectID: f.project.ID, sprintID: &f.sprint.ID, taskID: task.ID},
	}, f.notifier.all())

	_, err := f.svc.Get(context.Background(), 1, task.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = f.svc.Delete(context.Background(), 1, task.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, f.notifier.all(), 1)
}

func TestTaskService_Board(t *testing.T) {
	t.Parallel()

	f := newTaskFixture()
	todo := f.store.seedTask(domain.Task{Title: "a", ProjectID: f.project.ID, SprintID: &f.sprint.ID})
	doing := f.store.seedTask(domain.Task{Title: "b", ProjectID: f.project.ID, SprintID: &f.sprint.ID, Status: domain.TaskStatusInProgress})
	backlog := f.store.seedTask(domain.Task{Title: "c", ProjectID: f.project.ID, Status: domain.TaskStatusCompleted})

	t.Run("sprint board", func(t *testing.T) {
		b, err := f.svc.Board(context.Background(), 1, f.project.ID, &f.sprint.ID)
		require.NoError(t, err)
		require.Len(t, b.Todo, 1)
		require.Len(t, b.InProgress, 1)
		assert.Empty(t, b.Completed)
		assert.Equal(t, todo.ID, b.Todo[0].ID)
		assert.Equal(t, doing.ID, b.InProgress[0].ID)
	})

	t.Run("whole project", func(t *testing.T) {
		b, err := f.svc.Board(context.Background(), 2, f.project.ID, nil)
		require.NoError(t, err)
		require.Len(t, b.Completed, 1)
		assert.Equal(t, backlog.ID, b.Completed[0].ID)
		assert.Len(t, b.Todo, 1)
		assert.Len(t, b.InProgress, 1)
	})

	t.Run("forbidden", func(t *testing.T) {
		_, err := f.svc.Board(context.Background(), 3, f.project.ID, nil)
		require.ErrorIs(t, err, domain.ErrForbidden)
	})
}
