package domain

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"time"
)

// DefaultSprintDurationDays is used when a project does not set its own sprint length.
const DefaultSprintDurationDays = 14

// HoursPerDay is the conversion factor between the two task size units.
const HoursPerDay = 8.0

type SizeUnit string

const (
	SizeUnitHours SizeUnit = "hours"
	SizeUnitDays  SizeUnit = "days"
)

// ParseSizeUnit normalizes a user supplied unit. Unknown units are rejected.
func ParseSizeUnit(s string) (SizeUnit, error) {
	switch u := SizeUnit(strings.ToLower(strings.TrimSpace(s))); u {
	case SizeUnitHours, SizeUnitDays:
		return u, nil
	default:
		return "", errors.New("project: size unit must be hours or days")
	}
}

// ConvertTaskSize converts a task size between units, rounded to two decimals
// with halves rounded away from zero.
func ConvertTaskSize(v float64, from, to SizeUnit) float64 {
	switch {
	case from == to:
		return v
	case from == SizeUnitHours && to == SizeUnitDays:
		return round2(v / HoursPerDay)
	case from == SizeUnitDays && to == SizeUnitHours:
		return round2(v * HoursPerDay)
	default:
		return v
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type Project struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Color              string     `json:"color"`
	OwnerID            int64      `json:"ownerId"`
	VisibleTo          []int64    `json:"visibleToUserIds,omitempty"`
	SprintDurationDays int        `json:"sprintDurationDays"`
	TaskSizeUnit       SizeUnit   `json:"taskSizeUnit"`
	StartDate          *time.Time `json:"startDate,omitempty"`
	EndDate            *time.Time `json:"endDate,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	DeletedAt          *time.Time `json:"-"`
}

// NewProject creates a Project with validated required fields and defaults.
func NewProject(ownerID int64, name, description, color string) (*Project, error) {
	if ownerID <= 0 {
		return nil, errors.New("project: owner ID is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("project: name is required")
	}
	if color == "" {
		color = "#6366f1"
	}
	return &Project{
		Name:               name,
		Description:        description,
		Color:              color,
		OwnerID:            ownerID,
		SprintDurationDays: DefaultSprintDurationDays,
		TaskSizeUnit:       SizeUnitHours,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

// Deleted reports whether the project has been soft-deleted.
func (p *Project) Deleted() bool { return p.DeletedAt != nil }

// CanAccess reports whether userID may read or mutate the project's tasks.
// Owners always can; others need to be on the visibility list.
func (p *Project) CanAccess(userID int64) bool {
	return p.OwnerID == userID || slices.Contains(p.VisibleTo, userID)
}

// CanDelete reports whether userID may delete the project. Only the owner can;
// visibility never grants delete rights.
func (p *Project) CanDelete(userID int64) bool {
	return p.OwnerID == userID
}

// SprintEnd returns the end date of a sprint of this project starting at start.
func (p *Project) SprintEnd(start time.Time) time.Time {
	days := p.SprintDurationDays
	if days <= 0 {
		days = DefaultSprintDurationDays
	}
	return start.AddDate(0, 0, days)
}

type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	// GetByID returns ErrNotFound for missing and soft-deleted projects.
	GetByID(ctx context.Context, id int64) (*Project, error)
	// GetForUpdate is GetByID with a row lock; only meaningful inside a transaction.
	GetForUpdate(ctx context.Context, id int64) (*Project, error)
	// ListForUser lists live projects the user owns or can see.
	ListForUser(ctx context.Context, userID int64) ([]*Project, error)
	Update(ctx context.Context, p *Project) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}
