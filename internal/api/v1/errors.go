package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/server/middleware"
)

// currentUser returns the authenticated caller or a 401.
func currentUser(ctx context.Context) (int64, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return 0, huma.Error401Unauthorized("missing user context")
	}
	return userID, nil
}

// statusError maps a service error to an HTTP error. what names the resource
// in 404 and 500 messages.
func statusError(err error, what string) error {
	switch {
	case errors.Is(err, domain.ErrSprintNotPlanning):
		return huma.Error400BadRequest("sprint must be in planning to start")
	case errors.Is(err, domain.ErrSprintNotActive):
		return huma.Error400BadRequest("sprint must be active to complete")
	case errors.Is(err, domain.ErrInvalidTransition):
		return huma.Error400BadRequest("invalid state transition", err)
	case errors.Is(err, domain.ErrInvalidInput):
		return huma.Error400BadRequest("invalid "+what, err)
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(what + " not found")
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden("no access to this " + what)
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(what+" conflicts with existing state", err)
	default:
		return huma.Error500InternalServerError("failed to process "+what, err)
	}
}
