package domain

import (
	"context"
	"fmt"
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task is the full task representation; it is also the payload of
// TaskCreated and TaskUpdated board events.
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	AssigneeID  int64        `json:"assigneeId"`
	CreatedBy   int64        `json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	DueDate     *time.Time   `json:"dueDate"`
	Tags        []string     `json:"tags"`
	ProjectID   int64        `json:"projectId"`
	SprintID    *int64       `json:"sprintId"`
	Size        *float64     `json:"size"`
	DeletedAt   *time.Time   `json:"-"`
}

// Room is the board room this task's events are published to.
func (t *Task) Room() Room {
	return RoomFor(t.ProjectID, t.SprintID)
}

// Validate checks enum fields and required references.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("task: title is required: %w", ErrInvalidInput)
	}
	if t.ProjectID <= 0 {
		return fmt.Errorf("task: project ID is required: %w", ErrInvalidInput)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("task: unknown status %q: %w", t.Status, ErrInvalidInput)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("task: unknown priority %q: %w", t.Priority, ErrInvalidInput)
	}
	if t.Size != nil && *t.Size < 0 {
		return fmt.Errorf("task: size must not be negative: %w", ErrInvalidInput)
	}
	return nil
}

type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id int64) (*Task, error)
	// ListByBoard lists live tasks of a project. A nil sprintID lists every
	// task of the project.
	ListByBoard(ctx context.Context, projectID int64, sprintID *int64) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	SoftDeleteByProject(ctx context.Context, projectID int64, at time.Time) (int64, error)
}
