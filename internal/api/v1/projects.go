package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/tracker"
)

type CreateProjectInput struct {
	Body struct {
		Name               string     `json:"name" minLength:"1" maxLength:"255" doc:"Project name"`
		Description        string     `json:"description,omitempty" doc:"Project description"`
		Color              string     `json:"color,omitempty" doc:"Board colour"`
		VisibleTo          []int64    `json:"visibleToUserIds,omitempty" doc:"Users besides the owner who may see the project"`
		SprintDurationDays *int       `json:"sprintDurationDays,omitempty" minimum:"1" doc:"Sprint length in days"`
		TaskSizeUnit       string     `json:"taskSizeUnit,omitempty" enum:"hours,days" doc:"Unit of task sizes"`
		StartDate          *time.Time `json:"startDate,omitempty" doc:"Project start"`
		EndDate            *time.Time `json:"endDate,omitempty" doc:"Project end"`
	}
}

type ProjectOutput struct {
	Body *domain.Project
}

type ListProjectsInput struct{}

type ListProjectsOutput struct {
	Body []*domain.Project
}

type ProjectIDInput struct {
	ID int64 `path:"id" doc:"Project ID"`
}

type UpdateProjectInput struct {
	ID   int64 `path:"id" doc:"Project ID"`
	Body struct {
		Name               *string    `json:"name,omitempty" maxLength:"255" doc:"Project name"`
		Description        *string    `json:"description,omitempty" doc:"Project description"`
		Color              *string    `json:"color,omitempty" doc:"Board colour"`
		VisibleTo          []int64    `json:"visibleToUserIds,omitempty" doc:"Replaces the visibility list"`
		SprintDurationDays *int       `json:"sprintDurationDays,omitempty" minimum:"1" doc:"Sprint length in days"`
		TaskSizeUnit       string     `json:"taskSizeUnit,omitempty" enum:"hours,days" doc:"Changing the unit converts every task size"`
		StartDate          *time.Time `json:"startDate,omitempty" doc:"Project start"`
		EndDate            *time.Time `json:"endDate,omitempty" doc:"Project end"`
	}
}

func parseUnit(raw string) (*domain.SizeUnit, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := domain.ParseSizeUnit(raw)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &u, nil
}

func RegisterProjectRoutes(api huma.API, svc ProjectService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create a new project",
		Tags:          []string{"Projects"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateProjectInput) (*ProjectOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		unit, err := parseUnit(input.Body.TaskSizeUnit)
		if err != nil {
			return nil, err
		}

		p, err := svc.Create(ctx, userID, tracker.ProjectInput{
			Name:               input.Body.Name,
			Description:        input.Body.Description,
			Color:              input.Body.Color,
			VisibleTo:          input.Body.VisibleTo,
			SprintDurationDays: input.Body.SprintDurationDays,
			TaskSizeUnit:       unit,
			StartDate:          input.Body.StartDate,
			EndDate:            input.Body.EndDate,
		})
		if err != nil {
			return nil, statusError(err, "project")
		}

		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects visible to the caller",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, _ *ListProjectsInput) (*ListProjectsOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		projects, err := svc.List(ctx, userID)
		if err != nil {
			return nil, statusError(err, "project")
		}
		if projects == nil {
			projects = []*domain.Project{}
		}

		return &ListProjectsOutput{Body: projects}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get a project by ID",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectIDInput) (*ProjectOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		p, err := svc.Get(ctx, userID, input.ID)
		if err != nil {
			return nil, statusError(err, "project")
		}

		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}",
		Summary:     "Update a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *UpdateProjectInput) (*ProjectOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		unit, err := parseUnit(input.Body.TaskSizeUnit)
		if err != nil {
			return nil, err
		}

		p, err := svc.Update(ctx, userID, input.ID, tracker.ProjectPatch{
			Name:               input.Body.Name,
			Description:        input.Body.Description,
			Color:              input.Body.Color,
			VisibleTo:          input.Body.VisibleTo,
			SprintDurationDays: input.Body.SprintDurationDays,
			TaskSizeUnit:       unit,
			StartDate:          input.Body.StartDate,
			EndDate:            input.Body.EndDate,
		})
		if err != nil {
			return nil, statusError(err, "project")
		}

		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{id}",
		Summary:     "Delete a project with its sprints and tasks",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectIDInput) (*struct{}, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		if err := svc.Delete(ctx, userID, input.ID); err != nil {
			return nil, statusError(err, "project")
		}

		return nil, nil
	})
}
