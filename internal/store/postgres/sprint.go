package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gosuda/taskboard/internal/domain"
)

const sprintColumns = `id, project_id, name, goal, start_date, end_date, status, deleted_at`

type SprintRepo struct {
	db DBTX
}

func NewSprintRepo(db DBTX) *SprintRepo {
	return &SprintRepo{db: db}
}

func (r *SprintRepo) Create(ctx context.Context, s *domain.Sprint) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO sprints (project_id, name, goal, start_date, end_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		s.ProjectID, s.Name, s.Goal, s.StartDate, s.EndDate, s.Status.String(),
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("sprintRepo.Create: %w", mapErr(err))
	}

	return nil
}

func (r *SprintRepo) GetByID(ctx context.Context, id int64) (*domain.Sprint, error) {
	s, err := scanSprint(r.db.QueryRow(ctx,
		`SELECT `+sprintColumns+` FROM sprints WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, fmt.Errorf("sprintRepo.GetByID: %w", mapErr(err))
	}

	return s, nil
}

func (r *SprintRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Sprint, error) {
	s, err := scanSprint(r.db.QueryRow(ctx,
		`SELECT `+sprintColumns+` FROM sprints WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("sprintRepo.GetForUpdate: %w", mapErr(err))
	}

	return s, nil
}

func (r *SprintRepo) ActiveForUpdate(ctx context.Context, projectID int64) (*domain.Sprint, error) {
	s, err := scanSprint(r.db.QueryRow(ctx,
		`SELECT `+sprintColumns+` FROM sprints
		 WHERE project_id = $1 AND status = 'active' AND deleted_at IS NULL
		 FOR UPDATE`, projectID))
	if err != nil {
		return nil, fmt.Errorf("sprintRepo.ActiveForUpdate: %w", mapErr(err))
	}

	return s, nil
}

func (r *SprintRepo) ListByProject(ctx context.Context, projectID int64) ([]*domain.Sprint, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+sprintColumns+` FROM sprints
		 WHERE project_id = $1 AND deleted_at IS NULL
		 ORDER BY start_date, id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("sprintRepo.ListByProject: %w", err)
	}
	defer rows.Close()

	var sprints []*domain.Sprint
	for rows.Next() {
		s, scanErr := scanSprint(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("sprintRepo.ListByProject: scan: %w", scanErr)
		}
		sprints = append(sprints, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sprintRepo.ListByProject: rows: %w", err)
	}

	return sprints, nil
}

func (r *SprintRepo) Update(ctx context.Context, s *domain.Sprint) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sprints SET name = $1, goal = $2, start_date = $3, end_date = $4, status = $5
		 WHERE id = $6 AND deleted_at IS NULL`,
		s.Name, s.Goal, s.StartDate, s.EndDate, s.Status.String(), s.ID,
	)
	if err != nil {
		return fmt.Errorf("sprintRepo.Update: %w", mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sprintRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *SprintRepo) SoftDeleteByProject(ctx context.Context, projectID int64, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE sprints SET deleted_at = $2 WHERE project_id = $1 AND deleted_at IS NULL`,
		projectID, at,
	)
	if err != nil {
		return 0, fmt.Errorf("sprintRepo.SoftDeleteByProject: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanSprint(row pgx.Row) (*domain.Sprint, error) {
	var (
		s      domain.Sprint
		status string
	)
	if err := row.Scan(
		&s.ID, &s.ProjectID, &s.Name, &s.Goal, &s.StartDate, &s.EndDate, &status, &s.DeletedAt,
	); err != nil {
		return nil, err
	}
	st, err := domain.ParseSprintStatus(status)
	if err != nil {
		return nil, err
	}
	s.Status = st
	return &s, nil
}
