package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/tracker"
)

type GetBoardInput struct {
	ProjectID int64 `path:"projectID" doc:"Project ID"`
	SprintID  int64 `query:"sprint_id" minimum:"0" doc:"Restrict the board to one sprint; 0 or absent for every task"`
}

type GetBoardOutput struct {
	Body *tracker.Board
}

func RegisterBoardRoutes(api huma.API, svc TaskService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{projectID}",
		Summary:     "Get the task board of a project",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		userID, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		var sprintID *int64
		if input.SprintID > 0 {
			sprintID = &input.SprintID
		}

		board, err := svc.Board(ctx, userID, input.ProjectID, sprintID)
		if err != nil {
			return nil, statusError(err, "board")
		}

		return &GetBoardOutput{Body: board}, nil
	})
}
