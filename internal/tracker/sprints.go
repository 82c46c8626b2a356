package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
)

// SprintPatch changes the non-nil fields of a sprint. Status is changed only
// through Start and Complete.
type SprintPatch struct {
	Name      *string
	Goal      *string
	StartDate *time.Time
	EndDate   *time.Time
}

type SprintService struct {
	store domain.Transactor
}

func NewSprintService(store domain.Transactor) *SprintService {
	return &SprintService{store: store}
}

// Create adds a planning sprint whose end date follows the project's sprint length.
func (s *SprintService) Create(ctx context.Context, userID, projectID int64, name, goal string, start time.Time) (*domain.Sprint, error) {
	p, err := accessibleProject(ctx, s.store.Projects(), userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("tracker.SprintService.Create: %w", err)
	}

	sp, err := domain.NewSprint(p, name, goal, start)
	if err != nil {
		return nil, fmt.Errorf("tracker.SprintService.Create: %w: %w", err, domain.ErrInvalidInput)
	}
	if err := s.store.Sprints().Create(ctx, sp); err != nil {
		return nil, fmt.Errorf("tracker.SprintService.Create: %w", err)
	}
	return sp, nil
}

func (s *SprintService) Get(ctx context.Context, userID, id int64) (*domain.Sprint, error) {
	sp, err := s.store.Sprints().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tracker.SprintService.Get: %w", err)
	}
	if _, err := accessibleProject(ctx, s.store.Projects(), userID, sp.ProjectID); err != nil {
		return nil, fmt.Errorf("tracker.SprintService.Get: %w", err)
	}
	return sp, nil
}

func (s *SprintService) List(ctx context.Context, userID, projectID int64) ([]*domain.Sprint, error) {
	if _, err := accessibleProject(ctx, s.store.Projects(), userID, projectID); err != nil {
		return nil, fmt.Errorf("tracker.SprintService.List: %w", err)
	}
	sprints, err := s.store.Sprints().ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("tracker.SprintService.List: %w", err)
	}
	return sprints, nil
}

// Update edits name, goal and dates. Moving the start without an explicit
// end recomputes the end from the project's sprint length.
func (s *SprintService) Update(ctx context.Context, userID, id int64, patch SprintPatch) (*domain.Sprint, error) {
	var updated *domain.Sprint
	err := s.inSprintTx(ctx, userID, id, func(repos domain.Repositories, p *domain.Project, sp *domain.Sprint) error {
		if patch.Name != nil {
			if strings.TrimSpace(*patch.Name) == "" {
				return fmt.Errorf("sprint name must not be empty: %w", domain.ErrInvalidInput)
			}
			sp.Name = *patch.Name
		}
		if patch.Goal != nil {
			sp.Goal = *patch.Goal
		}
		switch {
		case patch.StartDate != nil:
			sp.Reschedule(p, *patch.StartDate, patch.EndDate)
		case patch.EndDate != nil:
			sp.EndDate = *patch.EndDate
		}
		if sp.EndDate.Before(sp.StartDate) {
			return fmt.Errorf("sprint end date is before its start: %w", domain.ErrInvalidInput)
		}

		if err := repos.Sprints().Update(ctx, sp); err != nil {
			return err
		}
		updated = sp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tracker.SprintService.Update: %w", err)
	}
	return updated, nil
}

// Start activates a planning sprint, completing the project's currently
// active sprint in the same transaction.
func (s *SprintService) Start(ctx context.Context, userID, id int64) (*domain.Sprint, error) {
	var started *domain.Sprint
	err := s.inSprintTx(ctx, userID, id, func(repos domain.Repositories, _ *domain.Project, sp *domain.Sprint) error {
		active, err := repos.Sprints().ActiveForUpdate(ctx, sp.ProjectID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			active = nil
		case err != nil:
			return err
		}

		if err := sp.Start(active); err != nil {
			return err
		}
		// The previous sprint is written first so the single-active index
		// never sees two active rows.
		if active != nil && active.ID != sp.ID {
			if err := repos.Sprints().Update(ctx, active); err != nil {
				return err
			}
			log.Info().Int64("project_id", sp.ProjectID).Int64("sprint_id", active.ID).
				Msg("tracker: sprint completed by successor")
		}
		if err := repos.Sprints().Update(ctx, sp); err != nil {
			return err
		}
		started = sp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tracker.SprintService.Start: %w", err)
	}
	return started, nil
}

// Complete closes an active sprint.
func (s *SprintService) Complete(ctx context.Context, userID, id int64) (*domain.Sprint, error) {
	var completed *domain.Sprint
	err := s.inSprintTx(ctx, userID, id, func(repos domain.Repositories, _ *domain.Project, sp *domain.Sprint) error {
		if err := sp.Complete(); err != nil {
			return err
		}
		if err := repos.Sprints().Update(ctx, sp); err != nil {
			return err
		}
		completed = sp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tracker.SprintService.Complete: %w", err)
	}
	return completed, nil
}

// inSprintTx locks the sprint's project and then the sprint before running fn.
// Every sprint write of a project takes the project lock first, which
// serializes concurrent starts.
func (s *SprintService) inSprintTx(ctx context.Context, userID, id int64, fn func(domain.Repositories, *domain.Project, *domain.Sprint) error) error {
	return s.store.InTx(ctx, func(repos domain.Repositories) error {
		probe, err := repos.Sprints().GetByID(ctx, id)
		if err != nil {
			return err
		}
		p, err := lockAccessibleProject(ctx, repos.Projects(), userID, probe.ProjectID)
		if err != nil {
			return err
		}
		sp, err := repos.Sprints().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return fn(repos, p, sp)
	})
}
