package boardsync

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gosuda/taskboard/internal/domain"
)

// Change describes the effect of one applied event.
type Change struct {
	Kind   domain.EventKind
	TaskID int64
	// Task is the new state for created and updated events.
	Task *domain.Task
	// Applied is false when the event left the cache unchanged.
	Applied bool
}

// Cache is the local copy of one board's tasks, in arrival order.
type Cache struct {
	mu    sync.RWMutex
	tasks []domain.Task
	index map[int64]int
}

func NewCache() *Cache {
	return &Cache{index: make(map[int64]int)}
}

// Replace swaps the cache contents, typically with a fresh board fetch.
func (c *Cache) Replace(tasks []domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tasks = c.tasks[:0]
	c.index = make(map[int64]int, len(tasks))
	for _, t := range tasks {
		if _, dup := c.index[t.ID]; dup {
			continue
		}
		c.index[t.ID] = len(c.tasks)
		c.tasks = append(c.tasks, t)
	}
}

// Apply merges a board event. Created is idempotent, Updated replaces only
// a task already present, and Deleted of an unknown task is a no-op.
func (c *Cache) Apply(f domain.Frame) (Change, error) {
	kind := domain.EventKind(f.Event)
	switch kind {
	case domain.TaskCreated, domain.TaskUpdated:
		var t domain.Task
		if err := json.Unmarshal(f.Data, &t); err != nil {
			return Change{}, fmt.Errorf("boardsync.Cache.Apply: decode %s: %w", kind, err)
		}
		ch := Change{Kind: kind, TaskID: t.ID, Task: &t}
		if kind == domain.TaskCreated {
			ch.Applied = c.insert(t)
		} else {
			ch.Applied = c.replace(t)
		}
		return ch, nil

	case domain.TaskDeleted:
		var p domain.DeletedPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return Change{}, fmt.Errorf("boardsync.Cache.Apply: decode %s: %w", kind, err)
		}
		return Change{Kind: kind, TaskID: p.TaskID, Applied: c.remove(p.TaskID)}, nil

	default:
		return Change{}, fmt.Errorf("boardsync.Cache.Apply: event %q: %w", f.Event, domain.ErrInvalidInput)
	}
}

// Snapshot returns a copy of the cached tasks.
func (c *Cache) Snapshot() []domain.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Get returns the cached task with id.
func (c *Cache) Get(id int64) (domain.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return domain.Task{}, false
	}
	return c.tasks[i], true
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tasks)
}

func (c *Cache) insert(t domain.Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index[t.ID]; ok {
		return false
	}
	c.index[t.ID] = len(c.tasks)
	c.tasks = append(c.tasks, t)
	return true
}

func (c *Cache) replace(t domain.Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[t.ID]
	if !ok {
		return false
	}
	c.tasks[i] = t
	return true
}

func (c *Cache) remove(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.tasks); j++ {
		c.index[c.tasks[j].ID] = j
	}
	return true
}
