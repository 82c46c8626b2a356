package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SprintStatus is the lifecycle state of a sprint: planning -> active -> completed.
type SprintStatus uint8

const (
	SprintPlanning SprintStatus = iota + 1
	SprintActive
	SprintCompleted
)

var (
	ErrSprintNotPlanning = fmt.Errorf("sprint must be in planning to start: %w", ErrInvalidTransition)
	ErrSprintNotActive   = fmt.Errorf("sprint must be active to complete: %w", ErrInvalidTransition)
)

func (s SprintStatus) String() string {
	switch s {
	case SprintPlanning:
		return "planning"
	case SprintActive:
		return "active"
	case SprintCompleted:
		return "completed"
	default:
		return fmt.Sprintf("SprintStatus(%d)", uint8(s))
	}
}

// ParseSprintStatus maps the wire name back to a status.
func ParseSprintStatus(s string) (SprintStatus, error) {
	switch strings.ToLower(s) {
	case "planning":
		return SprintPlanning, nil
	case "active":
		return SprintActive, nil
	case "completed":
		return SprintCompleted, nil
	default:
		return 0, fmt.Errorf("sprint: unknown status %q", s)
	}
}

// MarshalText writes the wire name. The zero value is written as an empty
// string so an unset status never breaks encoding of its sprint.
func (s SprintStatus) MarshalText() ([]byte, error) {
	switch s {
	case 0:
		return []byte{}, nil
	case SprintPlanning, SprintActive, SprintCompleted:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("sprint: cannot marshal %s", s)
	}
}

func (s *SprintStatus) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = 0
		return nil
	}
	v, err := ParseSprintStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Start returns the state after starting. Only planning sprints can start.
func (s SprintStatus) Start() (SprintStatus, error) {
	if s != SprintPlanning {
		return s, ErrSprintNotPlanning
	}
	return SprintActive, nil
}

// Complete returns the state after completing. Only active sprints can complete.
func (s SprintStatus) Complete() (SprintStatus, error) {
	if s != SprintActive {
		return s, ErrSprintNotActive
	}
	return SprintCompleted, nil
}

type Sprint struct {
	ID        int64        `json:"id"`
	ProjectID int64        `json:"projectId"`
	Name      string       `json:"name"`
	Goal      string       `json:"goal"`
	StartDate time.Time    `json:"startDate"`
	EndDate   time.Time    `json:"endDate"`
	Status    SprintStatus `json:"status"`
	DeletedAt *time.Time   `json:"-"`
}

// NewSprint creates a planning sprint whose end date follows the project's sprint length.
func NewSprint(project *Project, name, goal string, start time.Time) (*Sprint, error) {
	if project == nil {
		return nil, errors.New("sprint: project is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("sprint: name is required")
	}
	return &Sprint{
		ProjectID: project.ID,
		Name:      name,
		Goal:      goal,
		StartDate: start,
		EndDate:   project.SprintEnd(start),
		Status:    SprintPlanning,
	}, nil
}

// Start activates the sprint. If active is a different sprint of the same
// project it is completed first, so a project never has two active sprints.
// On error neither sprint is modified.
func (sp *Sprint) Start(active *Sprint) error {
	next, err := sp.Status.Start()
	if err != nil {
		return err
	}
	if active != nil && active.ID != sp.ID {
		if active.ProjectID != sp.ProjectID {
			return fmt.Errorf("sprint: active sprint %d belongs to project %d, not %d: %w",
				active.ID, active.ProjectID, sp.ProjectID, ErrConflict)
		}
		done, err := active.Status.Complete()
		if err != nil {
			return err
		}
		active.Status = done
	}
	sp.Status = next
	return nil
}

// Complete closes an active sprint.
func (sp *Sprint) Complete() error {
	next, err := sp.Status.Complete()
	if err != nil {
		return err
	}
	sp.Status = next
	return nil
}

// Reschedule moves the start date. Without an explicit end the end date is
// recomputed from the project's sprint length.
func (sp *Sprint) Reschedule(project *Project, start time.Time, end *time.Time) {
	sp.StartDate = start
	if end != nil {
		sp.EndDate = *end
		return
	}
	sp.EndDate = project.SprintEnd(start)
}

type SprintRepository interface {
	Create(ctx context.Context, s *Sprint) error
	GetByID(ctx context.Context, id int64) (*Sprint, error)
	GetForUpdate(ctx context.Context, id int64) (*Sprint, error)
	// ActiveForUpdate returns the project's active sprint, or ErrNotFound.
	ActiveForUpdate(ctx context.Context, projectID int64) (*Sprint, error)
	ListByProject(ctx context.Context, projectID int64) ([]*Sprint, error)
	Update(ctx context.Context, s *Sprint) error
	SoftDeleteByProject(ctx context.Context, projectID int64, at time.Time) (int64, error)
}
