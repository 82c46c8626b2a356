package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/tracker"
)

type CreateTaskInput struct {
	Body struct {
		Title       string     `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
		Description string     `json:"description,omitempty" doc:"Task description"`
		Status      string     `json:"status,omitempty" enum:"todo,in-progress,completed" doc:"Defaults to todo"`
		Priority    string     `json:"priority,omitempty" enum:"low,medium,high" doc:"Defaults to medium"`
		AssigneeID  int64      `json:"assigneeId,omitempty" doc:"Assigned user"`
		ProjectID   int64      `json:"projectId" minimum:"1" doc:"Owning project"`
		SprintID    *int64     `json:"sprintId,omitempty" doc:"Sprint; omitted for the backlog"`
		DueDate     *time.Time `json:"dueDate,omitempty" doc:"Due date"`
		Tags        []string   `json:"tags,omitempty" doc:"Free-form tags"`
		Size        *float64   `json:"size,omitempty" minimum:"0" doc:"Size in the project's unit"`
	}
}

type TaskOutput struct {
	Body *domain.Task
}

type TaskIDInput struct {
	ID int64 `path:"id" doc:"Task ID"`
}

type UpdateTaskInput struct {
	ID   int64 `path:"id" doc:"Task ID"`
	Body struct {
		Title       *string    `json:"title,omitempty" maxLength:"500" doc:"Task title"`
		Description *string    `json:"description,omitempty" doc:"Task description"`
		Status      string     `json:"status,omitempty" enum:"todo,in-progress,completed" doc:"Task status"`
		Priority    string     `json:"priority,omitempty" enum:"low,medium,high" doc:"Task priority"`
		AssigneeID  *int64     `json:"assigneeId,omitempty" doc:"Assigned user"`
		SprintID    *int64     `json:"sprintId,omitempty" doc:"Sprint; 0 moves the task to the backlog"`
		DueDate     *time.Time `json:"dueDate,omitempty" doc:"Due date"`
		Tags        []string   `json:"tags,omitempty" doc:"Replaces the tags"`
		Size        *float64   `json:"size,omitempty" minimum:"0" doc:"Size in the project's unit"`
	}
}

func RegisterTaskRoutes(api huma.API, svc TaskService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a new task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*TaskOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		t, err := svc.Create(ctx, userID, tracker.TaskInput{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      domain.TaskStatus(input.Body.Status),
			Priority:    domain.TaskPriority(input.Body.Priority),
			AssigneeID:  input.Body.AssigneeID,
			ProjectID:   input.Body.ProjectID,
			SprintID:    input.Body.SprintID,
			DueDate:     input.Body.DueDate,
			Tags:        input.Body.Tags,
			Size:        input.Body.Size,
		})
		if err != nil {
			return nil, statusError(err, "task")
		}

		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task by ID",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TaskOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		t, err := svc.Get(ctx, userID, input.ID)
		if err != nil {
			return nil, statusError(err, "task")
		}

		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*TaskOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		patch := tracker.TaskPatch{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			AssigneeID:  input.Body.AssigneeID,
			SprintID:    input.Body.SprintID,
			DueDate:     input.Body.DueDate,
			Tags:        input.Body.Tags,
			Size:        input.Body.Size,
		}
		if input.Body.Status != "" {
			status := domain.TaskStatus(input.Body.Status)
			patch.Status = &status
		}
		if input.Body.Priority != "" {
			priority := domain.TaskPriority(input.Body.Priority)
			patch.Priority = &priority
		}

		t, err := svc.Update(ctx, userID, input.ID, patch)
		if err != nil {
			return nil, statusError(err, "task")
		}

		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*struct{}, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		if err := svc.Delete(ctx, userID, input.ID); err != nil {
			return nil, statusError(err, "task")
		}

		return nil, nil
	})
}
