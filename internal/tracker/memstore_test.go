package tracker_test

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/gosuda/taskboard/internal/domain"
)

// memStore is an in-memory domain.Transactor. InTx restores the previous
// state when fn fails, and records lock acquisition order.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	project map[int64]domain.Project
	sprint  map[int64]domain.Sprint
	task    map[int64]domain.Task
	locks   []string

	// failTaskSoftDelete makes SoftDeleteByProject on tasks fail.
	failTaskSoftDelete bool
}

var errInjected = errors.New("injected failure")

func newMemStore() *memStore {
	return &memStore{
		project: make(map[int64]domain.Project),
		sprint:  make(map[int64]domain.Sprint),
		task:    make(map[int64]domain.Task),
	}
}

func (m *memStore) Projects() domain.ProjectRepository { return memProjects{m} }
func (m *memStore) Sprints() domain.SprintRepository   { return memSprints{m} }
func (m *memStore) Tasks() domain.TaskRepository       { return memTasks{m} }

func (m *memStore) InTx(_ context.Context, fn func(domain.Repositories) error) error {
	m.mu.Lock()
	project, sprint, task := maps.Clone(m.project), maps.Clone(m.sprint), maps.Clone(m.task)
	m.locks = nil
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.project, m.sprint, m.task = project, sprint, task
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) lockOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.locks)
}

// --- seeding helpers ---

func (m *memStore) seedProject(p domain.Project) *domain.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	}
	if p.SprintDurationDays == 0 {
		p.SprintDurationDays = domain.DefaultSprintDurationDays
	}
	if p.TaskSizeUnit == "" {
		p.TaskSizeUnit = domain.SizeUnitHours
	}
	m.project[p.ID] = p
	return &p
}

func (m *memStore) seedSprint(s domain.Sprint) *domain.Sprint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.id()
	}
	m.sprint[s.ID] = s
	return &s
}

func (m *memStore) seedTask(t domain.Task) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.id()
	}
	if t.Status == "" {
		t.Status = domain.TaskStatusTodo
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	m.task[t.ID] = t
	return &t
}

func (m *memStore) rawProject(id int64) domain.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.project[id]
}

func (m *memStore) rawSprint(id int64) domain.Sprint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sprint[id]
}

func (m *memStore) rawTask(id int64) domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.task[id]
}

// --- projects ---

type memProjects struct{ m *memStore }

func (r memProjects) Create(_ context.Context, p *domain.Project) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p.ID = r.m.id()
	r.m.project[p.ID] = *p
	return nil
}

func (r memProjects) GetByID(_ context.Context, id int64) (*domain.Project, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.project[id]
	if !ok || p.DeletedAt != nil {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r memProjects) GetForUpdate(ctx context.Context, id int64) (*domain.Project, error) {
	r.m.mu.Lock()
	r.m.locks = append(r.m.locks, "project")
	r.m.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r memProjects) ListForUser(_ context.Context, userID int64) ([]*domain.Project, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Project
	for _, id := range slices.Sorted(maps.Keys(r.m.project)) {
		p := r.m.project[id]
		if p.DeletedAt == nil && p.CanAccess(userID) {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r memProjects) Update(_ context.Context, p *domain.Project) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.project[p.ID]
	if !ok || cur.DeletedAt != nil {
		return domain.ErrNotFound
	}
	r.m.project[p.ID] = *p
	return nil
}

func (r memProjects) SoftDelete(_ context.Context, id int64, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.project[id]
	if !ok || p.DeletedAt != nil {
		return domain.ErrNotFound
	}
	p.DeletedAt = &at
	r.m.project[id] = p
	return nil
}

// --- sprints ---

type memSprints struct{ m *memStore }

func (r memSprints) Create(_ context.Context, s *domain.Sprint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s.ID = r.m.id()
	r.m.sprint[s.ID] = *s
	return nil
}

func (r memSprints) GetByID(_ context.Context, id int64) (*domain.Sprint, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sprint[id]
	if !ok || s.DeletedAt != nil {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r memSprints) GetForUpdate(ctx context.Context, id int64) (*domain.Sprint, error) {
	r.m.mu.Lock()
	r.m.locks = append(r.m.locks, "sprint")
	r.m.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r memSprints) ActiveForUpdate(_ context.Context, projectID int64) (*domain.Sprint, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.locks = append(r.m.locks, "active")
	for _, s := range r.m.sprint {
		if s.ProjectID == projectID && s.Status == domain.SprintActive && s.DeletedAt == nil {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memSprints) ListByProject(_ context.Context, projectID int64) ([]*domain.Sprint, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Sprint
	for _, id := range slices.Sorted(maps.Keys(r.m.sprint)) {
		s := r.m.sprint[id]
		if s.ProjectID == projectID && s.DeletedAt == nil {
			out = append(out, &s)
		}
	}
	return out, nil
}

// Update enforces the single-active-sprint index.
func (r memSprints) Update(_ context.Context, s *domain.Sprint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.sprint[s.ID]; !ok {
		return domain.ErrNotFound
	}
	if s.Status == domain.SprintActive {
		for id, other := range r.m.sprint {
			if id != s.ID && other.ProjectID == s.ProjectID && other.Status == domain.SprintActive && other.DeletedAt == nil {
				return domain.ErrConflict
			}
		}
	}
	r.m.sprint[s.ID] = *s
	return nil
}

func (r memSprints) SoftDeleteByProject(_ context.Context, projectID int64, at time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, s := range r.m.sprint {
		if s.ProjectID == projectID && s.DeletedAt == nil {
			s.DeletedAt = &at
			r.m.sprint[id] = s
			n++
		}
	}
	return n, nil
}

// --- tasks ---

type memTasks struct{ m *memStore }

func (r memTasks) Create(_ context.Context, t *domain.Task) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t.ID = r.m.id()
	r.m.task[t.ID] = *t
	return nil
}

func (r memTasks) GetByID(_ context.Context, id int64) (*domain.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.task[id]
	if !ok || t.DeletedAt != nil {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (r memTasks) ListByBoard(_ context.Context, projectID int64, sprintID *int64) ([]*domain.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Task
	for _, id := range slices.Sorted(maps.Keys(r.m.task)) {
		t := r.m.task[id]
		if t.ProjectID != projectID || t.DeletedAt != nil {
			continue
		}
		if sprintID != nil && (t.SprintID == nil || *t.SprintID != *sprintID) {
			continue
		}
		out = append(out, &t)
	}
	return out, nil
}

func (r memTasks) Update(_ context.Context, t *domain.Task) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.task[t.ID]
	if !ok || cur.DeletedAt != nil {
		return domain.ErrNotFound
	}
	r.m.task[t.ID] = *t
	return nil
}

func (r memTasks) SoftDelete(_ context.Context, id int64, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.task[id]
	if !ok || t.DeletedAt != nil {
		return domain.ErrNotFound
	}
	t.DeletedAt = &at
	r.m.task[id] = t
	return nil
}

func (r memTasks) SoftDeleteByProject(_ context.Context, projectID int64, at time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failTaskSoftDelete {
		return 0, errInjected
	}
	var n int64
	for id, t := range r.m.task {
		if t.ProjectID == projectID && t.DeletedAt == nil {
			t.DeletedAt = &at
			r.m.task[id] = t
			n++
		}
	}
	return n, nil
}

// --- notifier ---

type notification struct {
	kind      domain.EventKind
	projectID int64
	sprintID  *int64
	taskID    int64
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) record(e notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) NotifyCreated(_ context.Context, t *domain.Task) {
	n.record(notification{domain.TaskCreated, t.ProjectID, t.SprintID, t.ID})
}

func (n *recordingNotifier) NotifyUpdated(_ context.Context, t *domain.Task) {
	n.record(notification{domain.TaskUpdated, t.ProjectID, t.SprintID, t.ID})
}

func (n *recordingNotifier) NotifyDeleted(_ context.Context, projectID int64, sprintID *int64, taskID int64) {
	n.record(notification{domain.TaskDeleted, projectID, sprintID, taskID})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.events)
}

func ptr[T any](v T) *T { return &v }

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }
