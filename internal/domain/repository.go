package domain

import "context"

// Repositories groups the repositories that take part in a unit of work.
type Repositories interface {
	Projects() ProjectRepository
	Sprints() SprintRepository
	Tasks() TaskRepository
}

// Transactor runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	Repositories
	InTx(ctx context.Context, fn func(repos Repositories) error) error
}
