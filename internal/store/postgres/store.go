package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskboard/internal/domain"
)

//go:embed schema.sql
var schema string

// DBTX is the query surface shared by the pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repos struct {
	projects *ProjectRepo
	sprints  *SprintRepo
	tasks    *TaskRepo
}

func newRepos(db DBTX) repos {
	return repos{
		projects: NewProjectRepo(db),
		sprints:  NewSprintRepo(db),
		tasks:    NewTaskRepo(db),
	}
}

func (r repos) Projects() domain.ProjectRepository { return r.projects }
func (r repos) Sprints() domain.SprintRepository   { return r.sprints }
func (r repos) Tasks() domain.TaskRepository       { return r.tasks }

// Store implements domain.Transactor on a pgx pool.
type Store struct {
	repos
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{repos: newRepos(pool), pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Store.Ping: %w", err)
	}
	return nil
}

// InTx runs fn inside a single transaction. Row locks taken through the
// repositories passed to fn are held until it returns.
func (s *Store) InTx(ctx context.Context, fn func(domain.Repositories) error) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newRepos(tx))
	})
	if err != nil {
		return fmt.Errorf("postgres.Store.InTx: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres.Store.Migrate: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

// mapErr converts driver errors into domain sentinels.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrConflict)
	}
	return err
}
