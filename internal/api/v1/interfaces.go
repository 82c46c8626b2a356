package v1

import (
	"context"
	"time"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/tracker"
)

// ProjectService abstracts project operations for handler testing.
// *tracker.ProjectService satisfies this interface.
type ProjectService interface {
	Create(ctx context.Context, ownerID int64, in tracker.ProjectInput) (*domain.Project, error)
	Get(ctx context.Context, userID, id int64) (*domain.Project, error)
	List(ctx context.Context, userID int64) ([]*domain.Project, error)
	Update(ctx context.Context, userID, id int64, patch tracker.ProjectPatch) (*domain.Project, error)
	Delete(ctx context.Context, userID, id int64) error
}

// SprintService abstracts sprint lifecycle operations for handler testing.
// *tracker.SprintService satisfies this interface.
type SprintService interface {
	Create(ctx context.Context, userID, projectID int64, name, goal string, start time.Time) (*domain.Sprint, error)
	Get(ctx context.Context, userID, id int64) (*domain.Sprint, error)
	List(ctx context.Context, userID, projectID int64) ([]*domain.Sprint, error)
	Update(ctx context.Context, userID, id int64, patch tracker.SprintPatch) (*domain.Sprint, error)
	Start(ctx context.Context, userID, id int64) (*domain.Sprint, error)
	Complete(ctx context.Context, userID, id int64) (*domain.Sprint, error)
}

// TaskService abstracts task mutations and board reads for handler testing.
// *tracker.TaskService satisfies this interface.
type TaskService interface {
	Create(ctx context.Context, userID int64, in tracker.TaskInput) (*domain.Task, error)
	Get(ctx context.Context, userID, id int64) (*domain.Task, error)
	Update(ctx context.Context, userID, id int64, patch tracker.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, userID, id int64) error
	Board(ctx context.Context, userID, projectID int64, sprintID *int64) (*tracker.Board, error)
}
