package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
)

// ProjectInput describes a new project.
type ProjectInput struct {
	Name               string
	Description        string
	Color              string
	VisibleTo          []int64
	SprintDurationDays *int
	TaskSizeUnit       *domain.SizeUnit
	StartDate          *time.Time
	EndDate            *time.Time
}

// ProjectPatch changes the non-nil fields of a project.
type ProjectPatch struct {
	Name               *string
	Description        *string
	Color              *string
	VisibleTo          []int64
	SprintDurationDays *int
	TaskSizeUnit       *domain.SizeUnit
	StartDate          *time.Time
	EndDate            *time.Time
}

type ProjectService struct {
	store domain.Transactor
	now   Clock
}

func NewProjectService(store domain.Transactor, now Clock) *ProjectService {
	if now == nil {
		now = utcNow
	}
	return &ProjectService{store: store, now: now}
}

func (s *ProjectService) Create(ctx context.Context, ownerID int64, in ProjectInput) (*domain.Project, error) {
	p, err := domain.NewProject(ownerID, in.Name, in.Description, in.Color)
	if err != nil {
		return nil, fmt.Errorf("tracker.ProjectService.Create: %w: %w", err, domain.ErrInvalidInput)
	}
	p.VisibleTo = in.VisibleTo
	p.StartDate, p.EndDate = in.StartDate, in.EndDate
	p.CreatedAt = s.now()
	if in.SprintDurationDays != nil {
		if *in.SprintDurationDays <= 0 {
			return nil, fmt.Errorf("tracker.ProjectService.Create: sprint duration must be positive: %w", domain.ErrInvalidInput)
		}
		p.SprintDurationDays = *in.SprintDurationDays
	}
	if in.TaskSizeUnit != nil {
		p.TaskSizeUnit = *in.TaskSizeUnit
	}

	if err := s.store.Projects().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("tracker.ProjectService.Create: %w", err)
	}
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, userID, id int64) (*domain.Project, error) {
	p, err := accessibleProject(ctx, s.store.Projects(), userID, id)
	if err != nil {
		return nil, fmt.Errorf("tracker.ProjectService.Get: %w", err)
	}
	return p, nil
}

func (s *ProjectService) List(ctx context.Context, userID int64) ([]*domain.Project, error) {
	projects, err := s.store.Projects().ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("tracker.ProjectService.List: %w", err)
	}
	return projects, nil
}

// Update applies patch. Changing the task size unit converts the size of
// every live sized task of the project in the same transaction.
func (s *ProjectService) Update(ctx context.Context, userID, id int64, patch ProjectPatch) (*domain.Project, error) {
	var updated *domain.Project
	err := s.store.InTx(ctx, func(repos domain.Repositories) error {
		p, err := lockAccessibleProject(ctx, repos.Projects(), userID, id)
		if err != nil {
			return err
		}

		oldUnit := p.TaskSizeUnit
		if err := applyProjectPatch(p, patch); err != nil {
			return err
		}

		if p.TaskSizeUnit != oldUnit {
			converted, err := convertTaskSizes(ctx, repos.Tasks(), p.ID, oldUnit, p.TaskSizeUnit)
			if err != nil {
				return err
			}
			log.Info().Int64("project_id", p.ID).
				Str("from", string(oldUnit)).Str("to", string(p.TaskSizeUnit)).
				Int("tasks", converted).
				Msg("tracker: converted task sizes")
		}

		if err := repos.Projects().Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tracker.ProjectService.Update: %w", err)
	}
	return updated, nil
}

// Delete soft-deletes the project together with its live tasks and sprints.
// Only the owner may delete. No board event is emitted.
func (s *ProjectService) Delete(ctx context.Context, userID, id int64) error {
	err := s.store.InTx(ctx, func(repos domain.Repositories) error {
		p, err := repos.Projects().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !p.CanDelete(userID) {
			return fmt.Errorf("project %d: %w", id, domain.ErrForbidden)
		}

		at := s.now()
		if err := repos.Projects().SoftDelete(ctx, id, at); err != nil {
			return err
		}
		tasks, err := repos.Tasks().SoftDeleteByProject(ctx, id, at)
		if err != nil {
			return err
		}
		sprints, err := repos.Sprints().SoftDeleteByProject(ctx, id, at)
		if err != nil {
			return err
		}

		log.Info().Int64("project_id", id).
			Int64("tasks", tasks).Int64("sprints", sprints).
			Msg("tracker: project deleted")
		return nil
	})
	if err != nil {
		return fmt.Errorf("tracker.ProjectService.Delete: %w", err)
	}
	return nil
}

func applyProjectPatch(p *domain.Project, patch ProjectPatch) error {
	if patch.Name != nil {
		if *patch.Name == "" {
			return fmt.Errorf("project name must not be empty: %w", domain.ErrInvalidInput)
		}
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Color != nil {
		p.Color = *patch.Color
	}
	if patch.VisibleTo != nil {
		p.VisibleTo = patch.VisibleTo
	}
	if patch.SprintDurationDays != nil {
		if *patch.SprintDurationDays <= 0 {
			return fmt.Errorf("sprint duration must be positive: %w", domain.ErrInvalidInput)
		}
		p.SprintDurationDays = *patch.SprintDurationDays
	}
	if patch.TaskSizeUnit != nil {
		p.TaskSizeUnit = *patch.TaskSizeUnit
	}
	if patch.StartDate != nil {
		p.StartDate = patch.StartDate
	}
	if patch.EndDate != nil {
		p.EndDate = patch.EndDate
	}
	return nil
}

func convertTaskSizes(ctx context.Context, repo domain.TaskRepository, projectID int64, from, to domain.SizeUnit) (int, error) {
	tasks, err := repo.ListByBoard(ctx, projectID, nil)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range tasks {
		if t.Size == nil {
			continue
		}
		size := domain.ConvertTaskSize(*t.Size, from, to)
		t.Size = &size
		if err := repo.Update(ctx, t); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
