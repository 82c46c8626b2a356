package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gosuda/taskboard/internal/domain"
)

const taskColumns = `id, title, description, status, priority, assignee_id, created_by, created_at,
	due_date, tags, project_id, sprint_id, size, deleted_at`

type TaskRepo struct {
	db DBTX
}

func NewTaskRepo(db DBTX) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO tasks (title, description, status, priority, assignee_id, created_by, created_at,
		                    due_date, tags, project_id, sprint_id, size)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		t.Title, t.Description, t.Status, t.Priority, t.AssigneeID, t.CreatedBy, t.CreatedAt,
		t.DueDate, tags(t.Tags), t.ProjectID, t.SprintID, t.Size,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("taskRepo.Create: %w", err)
	}

	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", mapErr(err))
	}

	return t, nil
}

func (r *TaskRepo) ListByBoard(ctx context.Context, projectID int64, sprintID *int64) ([]*domain.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE project_id = $1 AND deleted_at IS NULL AND ($2::BIGINT IS NULL OR sprint_id = $2)
		 ORDER BY created_at, id
		 LIMIT 1000`,
		projectID, sprintID,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("taskRepo.ListByBoard: scan: %w", scanErr)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskRepo.ListByBoard: rows: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, status = $3, priority = $4, assignee_id = $5,
		        due_date = $6, tags = $7, sprint_id = $8, size = $9
		 WHERE id = $10 AND deleted_at IS NULL`,
		t.Title, t.Description, t.Status, t.Priority, t.AssigneeID,
		t.DueDate, tags(t.Tags), t.SprintID, t.Size, t.ID,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *TaskRepo) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tasks SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.SoftDelete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.SoftDelete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *TaskRepo) SoftDeleteByProject(ctx context.Context, projectID int64, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE tasks SET deleted_at = $2 WHERE project_id = $1 AND deleted_at IS NULL`,
		projectID, at,
	)
	if err != nil {
		return 0, fmt.Errorf("taskRepo.SoftDeleteByProject: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.AssigneeID, &t.CreatedBy, &t.CreatedAt,
		&t.DueDate, &t.Tags, &t.ProjectID, &t.SprintID, &t.Size, &t.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func tags(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
