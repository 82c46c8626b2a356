package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosuda/taskboard/internal/domain"
)

// TaskInput describes a new task.
type TaskInput struct {
	Title       string
	Description string
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	AssigneeID  int64
	ProjectID   int64
	SprintID    *int64
	DueDate     *time.Time
	Tags        []string
	Size        *float64
}

// TaskPatch changes the non-nil fields of a task. A SprintID of 0 moves the
// task to the backlog.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	AssigneeID  *int64
	DueDate     *time.Time
	SprintID    *int64
	Tags        []string
	Size        *float64
}

// Board is a project's live tasks grouped by status.
type Board struct {
	ProjectID  int64          `json:"projectId"`
	SprintID   *int64         `json:"sprintId"`
	Todo       []*domain.Task `json:"todo"`
	InProgress []*domain.Task `json:"inProgress"`
	Completed  []*domain.Task `json:"completed"`
}

// TaskService mutates tasks and notifies board viewers once each mutation
// has been persisted.
type TaskService struct {
	store    domain.Transactor
	notifier Notifier
	now      Clock
}

func NewTaskService(store domain.Transactor, notifier Notifier, now Clock) *TaskService {
	if now == nil {
		now = utcNow
	}
	return &TaskService{store: store, notifier: notifier, now: now}
}

func (s *TaskService) Create(ctx context.Context, userID int64, in TaskInput) (*domain.Task, error) {
	t := &domain.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		AssigneeID:  in.AssigneeID,
		CreatedBy:   userID,
		CreatedAt:   s.now(),
		DueDate:     in.DueDate,
		Tags:        in.Tags,
		ProjectID:   in.ProjectID,
		SprintID:    in.SprintID,
		Size:        in.Size,
	}
	if t.Status == "" {
		t.Status = domain.TaskStatusTodo
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("tracker.TaskService.Create: %w", err)
	}

	if _, err := accessibleProject(ctx, s.store.Projects(), userID, t.ProjectID); err != nil {
		return nil, fmt.Errorf("tracker.TaskService.Create: %w", err)
	}
	if t.SprintID != nil {
		if err := checkSprintOf(ctx, s.store.Sprints(), t.ProjectID, *t.SprintID); err != nil {
			return nil, fmt.Errorf("tracker.TaskService.Create: %w", err)
		}
	}

	if err := s.store.Tasks().Create(ctx, t); err != nil {
		return nil, fmt.Errorf("tracker.TaskService.Create: %w", err)
	}
	s.notifier.NotifyCreated(ctx, t)
	return t, nil
}

func (s *TaskService) Get(ctx context.Context, userID, id int64) (*domain.Task, error) {
	t, err := s.accessibleTask(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("tracker.TaskService.Get: %w", err)
	}
	return t, nil
}

// Update applies patch and announces the result to the task's current room.
// A task moved between sprints is announced only to its new room.
func (s *TaskService) Update(ctx context.Context, userID, id int64, patch TaskPatch) (*domain.Task, error) {
	t, err := s.accessibleTask(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("tracker.TaskService.Update: %w", err)
	}

	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.AssigneeID != nil {
		t.AssigneeID = *patch.AssigneeID
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.Tags != nil {
		t.Tags = patch.Tags
	}
	if patch.Size != nil {
		t.Size = patch.Size
	}
	if patch.SprintID != nil {
		if *patch.SprintID == 0 {
			t.SprintID = nil
		} else {
			if err := checkSprintOf(ctx, s.store.Sprints(), t.ProjectID, *patch.SprintID); err != nil {
				return nil, fmt.Errorf("tracker.TaskService.Update: %w", err)
			}
			sid := *patch.SprintID
			t.SprintID = &sid
		}
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("tracker.TaskService.Update: %w", err)
	}

	if err := s.store.Tasks().Update(ctx, t); err != nil {
		return nil, fmt.Errorf("tracker.TaskService.Update: %w", err)
	}
	s.notifier.NotifyUpdated(ctx, t)
	return t, nil
}

// Delete soft-deletes the task and announces it to the room it was in.
func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	t, err := s.accessibleTask(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("tracker.TaskService.Delete: %w", err)
	}
	projectID, sprintID := t.ProjectID, t.SprintID

	if err := s.store.Tasks().SoftDelete(ctx, id, s.now()); err != nil {
		return fmt.Errorf("tracker.TaskService.Delete: %w", err)
	}
	s.notifier.NotifyDeleted(ctx, projectID, sprintID, id)
	return nil
}

// Board returns the project's live tasks grouped by status. A nil sprintID
// includes every task of the project.
func (s *TaskService) Board(ctx context.Context, userID, projectID int64, sprintID *int64) (*Board, error) {
	if _, err := accessibleProject(ctx, s.store.Projects(), userID, projectID); err != nil {
		return nil, fmt.Errorf("tracker.TaskService.Board: %w", err)
	}
	tasks, err := s.store.Tasks().ListByBoard(ctx, projectID, sprintID)
	if err != nil {
		return nil, fmt.Errorf("tracker.TaskService.Board: %w", err)
	}

	b := &Board{
		ProjectID:  projectID,
		SprintID:   sprintID,
		Todo:       []*domain.Task{},
		InProgress: []*domain.Task{},
		Completed:  []*domain.Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case domain.TaskStatusTodo:
			b.Todo = append(b.Todo, t)
		case domain.TaskStatusInProgress:
			b.InProgress = append(b.InProgress, t)
		case domain.TaskStatusCompleted:
			b.Completed = append(b.Completed, t)
		}
	}
	return b, nil
}

func (s *TaskService) accessibleTask(ctx context.Context, userID, id int64) (*domain.Task, error) {
	t, err := s.store.Tasks().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := accessibleProject(ctx, s.store.Projects(), userID, t.ProjectID); err != nil {
		return nil, err
	}
	return t, nil
}
