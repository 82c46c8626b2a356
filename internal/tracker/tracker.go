// Package tracker implements the task tracker's write paths: project
// lifecycle with cascading soft-delete, the sprint state machine, and task
// mutations that announce themselves to board viewers after they commit.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosuda/taskboard/internal/domain"
)

// Notifier announces committed task mutations. Implementations must not
// block or fail the caller.
type Notifier interface {
	NotifyCreated(ctx context.Context, t *domain.Task)
	NotifyUpdated(ctx context.Context, t *domain.Task)
	NotifyDeleted(ctx context.Context, projectID int64, sprintID *int64, taskID int64)
}

// Clock returns the current time; tests substitute a fixed one.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// accessibleProject loads a live project the user may work in.
func accessibleProject(ctx context.Context, repo domain.ProjectRepository, userID, projectID int64) (*domain.Project, error) {
	p, err := repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(userID) {
		return nil, fmt.Errorf("project %d: %w", projectID, domain.ErrForbidden)
	}
	return p, nil
}

// lockAccessibleProject is accessibleProject with a row lock.
func lockAccessibleProject(ctx context.Context, repo domain.ProjectRepository, userID, projectID int64) (*domain.Project, error) {
	p, err := repo.GetForUpdate(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(userID) {
		return nil, fmt.Errorf("project %d: %w", projectID, domain.ErrForbidden)
	}
	return p, nil
}

// checkSprintOf rejects a sprint that is missing or belongs to another project.
func checkSprintOf(ctx context.Context, repo domain.SprintRepository, projectID, sprintID int64) error {
	s, err := repo.GetByID(ctx, sprintID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("sprint %d does not exist: %w", sprintID, domain.ErrInvalidInput)
	}
	if err != nil {
		return err
	}
	if s.ProjectID != projectID {
		return fmt.Errorf("sprint %d belongs to another project: %w", sprintID, domain.ErrInvalidInput)
	}
	return nil
}
