package v1_test

import (
	"context"
	"time"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/server/middleware"
	"github.com/gosuda/taskboard/internal/tracker"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the authenticated user for DoCtx
// ---------------------------------------------------------------------------

func userCtx(userID int64) context.Context {
	return middleware.WithUserID(context.Background(), userID)
}

func ptr[T any](v T) *T { return &v }

// ---------------------------------------------------------------------------
// Mock ProjectService
// ---------------------------------------------------------------------------

type mockProjectService struct {
	createFunc func(ctx context.Context, ownerID int64, in tracker.ProjectInput) (*domain.Project, error)
	getFunc    func(ctx context.Context, userID, id int64) (*domain.Project, error)
	listFunc   func(ctx context.Context, userID int64) ([]*domain.Project, error)
	updateFunc func(ctx context.Context, userID, id int64, patch tracker.ProjectPatch) (*domain.Project, error)
	deleteFunc func(ctx context.Context, userID, id int64) error
}

func (m *mockProjectService) Create(ctx context.Context, ownerID int64, in tracker.ProjectInput) (*domain.Project, error) {
	return m.createFunc(ctx, ownerID, in)
}

func (m *mockProjectService) Get(ctx context.Context, userID, id int64) (*domain.Project, error) {
	return m.getFunc(ctx, userID, id)
}

func (m *mockProjectService) List(ctx context.Context, userID int64) ([]*domain.Project, error) {
	return m.listFunc(ctx, userID)
}

func (m *mockProjectService) Update(ctx context.Context, userID, id int64, patch tracker.ProjectPatch) (*domain.Project, error) {
	return m.updateFunc(ctx, userID, id, patch)
}

func (m *mockProjectService) Delete(ctx context.Context, userID, id int64) error {
	return m.deleteFunc(ctx, userID, id)
}

// ---------------------------------------------------------------------------
// Mock SprintService
// ---------------------------------------------------------------------------

type mockSprintService struct {
	createFunc   func(ctx context.Context, userID, projectID int64, name, goal string, start time.Time) (*domain.Sprint, error)
	getFunc      func(ctx context.Context, userID, id int64) (*domain.Sprint, error)
	listFunc     func(ctx context.Context, userID, projectID int64) ([]*domain.Sprint, error)
	updateFunc   func(ctx context.Context, userID, id int64, patch tracker.SprintPatch) (*domain.Sprint, error)
	startFunc    func(ctx context.Context, userID, id int64) (*domain.Sprint, error)
	completeFunc func(ctx context.Context, userID, id int64) (*domain.Sprint, error)
}

func (m *mockSprintService) Create(ctx context.Context, userID, projectID int64, name, goal string, start time.Time) (*domain.Sprint, error) {
	return m.createFunc(ctx, userID, projectID, name, goal, start)
}

func (m *mockSprintService) Get(ctx context.Context, userID, id int64) (*domain.Sprint, error) {
	return m.getFunc(ctx, userID, id)
}

func (m *mockSprintService) List(ctx context.Context, userID, projectID int64) ([]*domain.Sprint, error) {
	return m.listFunc(ctx, userID, projectID)
}

func (m *mockSprintService) Update(ctx context.Context, userID, id int64, patch tracker.SprintPatch) (*domain.Sprint, error) {
	return m.updateFunc(ctx, userID, id, patch)
}

func (m *mockSprintService) Start(ctx context.Context, userID, id int64) (*domain.Sprint, error) {
	return m.startFunc(ctx, userID, id)
}

func (m *mockSprintService) Complete(ctx context.Context, userID, id int64) (*domain.Sprint, error) {
	return m.completeFunc(ctx, userID, id)
}

// ---------------------------------------------------------------------------
// Mock TaskService
// ---------------------------------------------------------------------------

type mockTaskService struct {
	createFunc func(ctx context.Context, userID int64, in tracker.TaskInput) (*domain.Task, error)
	getFunc    func(ctx context.Context, userID, id int64) (*domain.Task, error)
	updateFunc func(ctx context.Context, userID, id int64, patch tracker.TaskPatch) (*domain.Task, error)
	deleteFunc func(ctx context.Context, userID, id int64) error
	boardFunc  func(ctx context.Context, userID, projectID int64, sprintID *int64) (*tracker.Board, error)
}

func (m *mockTaskService) Create(ctx context.Context, userID int64, in tracker.TaskInput) (*domain.Task, error) {
	return m.createFunc(ctx, userID, in)
}

func (m *mockTaskService) Get(ctx context.Context, userID, id int64) (*domain.Task, error) {
	return m.getFunc(ctx, userID, id)
}

func (m *mockTaskService) Update(ctx context.Context, userID, id int64, patch tracker.TaskPatch) (*domain.Task, error) {
	return m.updateFunc(ctx, userID, id, patch)
}

func (m *mockTaskService) Delete(ctx context.Context, userID, id int64) error {
	return m.deleteFunc(ctx, userID, id)
}

func (m *mockTaskService) Board(ctx context.Context, userID, projectID int64, sprintID *int64) (*tracker.Board, error) {
	return m.boardFunc(ctx, userID, projectID, sprintID)
}
