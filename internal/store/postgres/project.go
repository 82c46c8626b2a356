package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gosuda/taskboard/internal/domain"
)

const projectColumns = `id, name, description, color, owner_id, visible_to, sprint_duration_days,
	task_size_unit, start_date, end_date, created_at, deleted_at`

type ProjectRepo struct {
	db DBTX
}

func NewProjectRepo(db DBTX) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	visible := p.VisibleTo
	if visible == nil {
		visible = []int64{}
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO projects (name, description, color, owner_id, visible_to, sprint_duration_days,
		                       task_size_unit, start_date, end_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		p.Name, p.Description, p.Color, p.OwnerID, visible, p.SprintDurationDays,
		p.TaskSizeUnit, p.StartDate, p.EndDate, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("projectRepo.Create: %w", err)
	}

	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, fmt.Errorf("projectRepo.GetByID: %w", mapErr(err))
	}

	return p, nil
}

func (r *ProjectRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("projectRepo.GetForUpdate: %w", mapErr(err))
	}

	return p, nil
}

func (r *ProjectRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE deleted_at IS NULL AND (owner_id = $1 OR $1 = ANY(visible_to))
		 ORDER BY created_at, id
		 LIMIT 1000`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("projectRepo.ListForUser: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		p, scanErr := scanProject(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("projectRepo.ListForUser: scan: %w", scanErr)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("projectRepo.ListForUser: rows: %w", err)
	}

	return projects, nil
}

func (r *ProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	visible := p.VisibleTo
	if visible == nil {
		visible = []int64{}
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE projects SET name = $1, description = $2, color = $3, visible_to = $4,
		        sprint_duration_days = $5, task_size_unit = $6, start_date = $7, end_date = $8
		 WHERE id = $9 AND deleted_at IS NULL`,
		p.Name, p.Description, p.Color, visible,
		p.SprintDurationDays, p.TaskSizeUnit, p.StartDate, p.EndDate, p.ID,
	)
	if err != nil {
		return fmt.Errorf("projectRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("projectRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *ProjectRepo) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE projects SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("projectRepo.SoftDelete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("projectRepo.SoftDelete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Color, &p.OwnerID, &p.VisibleTo, &p.SprintDurationDays,
		&p.TaskSizeUnit, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
