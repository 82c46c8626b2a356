package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/tracker"
)

type CreateSprintInput struct {
	ProjectID int64 `path:"projectID" doc:"Project ID"`
	Body      struct {
		Name      string    `json:"name" minLength:"1" maxLength:"255" doc:"Sprint name"`
		Goal      string    `json:"goal,omitempty" doc:"Sprint goal"`
		StartDate time.Time `json:"startDate" doc:"First day of the sprint; the end follows the project's sprint length"`
	}
}

type SprintOutput struct {
	Body *domain.Sprint
}

type ListSprintsInput struct {
	ProjectID int64 `path:"projectID" doc:"Project ID"`
}

type ListSprintsOutput struct {
	Body []*domain.Sprint
}

type SprintIDInput struct {
	ID int64 `path:"id" doc:"Sprint ID"`
}

type UpdateSprintInput struct {
	ID   int64 `path:"id" doc:"Sprint ID"`
	Body struct {
		Name      *string    `json:"name,omitempty" maxLength:"255" doc:"Sprint name"`
		Goal      *string    `json:"goal,omitempty" doc:"Sprint goal"`
		StartDate *time.Time `json:"startDate,omitempty" doc:"New start; the end is recomputed unless endDate is given"`
		EndDate   *time.Time `json:"endDate,omitempty" doc:"New end"`
	}
}

func RegisterSprintRoutes(api huma.API, svc SprintService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-sprint",
		Method:        http.MethodPost,
		Path:          "/projects/{projectID}/sprints",
		Summary:       "Plan a new sprint",
		Tags:          []string{"Sprints"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateSprintInput) (*SprintOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		sp, err := svc.Create(ctx, userID, input.ProjectID, input.Body.Name, input.Body.Goal, input.Body.StartDate)
		if err != nil {
			return nil, statusError(err, "sprint")
		}

		return &SprintOutput{Body: sp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-sprints",
		Method:      http.MethodGet,
		Path:        "/projects/{projectID}/sprints",
		Summary:     "List the sprints of a project",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *ListSprintsInput) (*ListSprintsOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		sprints, err := svc.List(ctx, userID, input.ProjectID)
		if err != nil {
			return nil, statusError(err, "sprint")
		}
		if sprints == nil {
			sprints = []*domain.Sprint{}
		}

		return &ListSprintsOutput{Body: sprints}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-sprint",
		Method:      http.MethodGet,
		Path:        "/sprints/{id}",
		Summary:     "Get a sprint by ID",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *SprintIDInput) (*SprintOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		sp, err := svc.Get(ctx, userID, input.ID)
		if err != nil {
			return nil, statusError(err, "sprint")
		}

		return &SprintOutput{Body: sp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-sprint",
		Method:      http.MethodPatch,
		Path:        "/sprints/{id}",
		Summary:     "Update a sprint's name, goal or dates",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *UpdateSprintInput) (*SprintOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		sp, err := svc.Update(ctx, userID, input.ID, tracker.SprintPatch{
			Name:      input.Body.Name,
			Goal:      input.Body.Goal,
			StartDate: input.Body.StartDate,
			EndDate:   input.Body.EndDate,
		})
		if err != nil {
			return nil, statusError(err, "sprint")
		}

		return &SprintOutput{Body: sp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-sprint",
		Method:      http.MethodPost,
		Path:        "/sprints/{id}/start",
		Summary:     "Start a planned sprint, completing the project's active sprint",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *SprintIDInput) (*SprintOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		sp, err := svc.Start(ctx, userID, input.ID)
		if err != nil {
			return nil, statusError(err, "sprint")
		}

		return &SprintOutput{Body: sp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-sprint",
		Method:      http.MethodPost,
		Path:        "/sprints/{id}/complete",
		Summary:     "Complete the active sprint",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *SprintIDInput) (*SprintOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		sp, err := svc.Complete(ctx, userID, input.ID)
		if err != nil {
			return nil, statusError(err, "sprint")
		}

		return &SprintOutput{Body: sp}, nil
	})
}
