package domain

import (
	"encoding/json"
	"errors"
	"strconv"
)

// EventKind names a task lifecycle event. The values are the wire event names.
type EventKind string

const (
	TaskCreated EventKind = "TaskCreated"
	TaskUpdated EventKind = "TaskUpdated"
	TaskDeleted EventKind = "TaskDeleted"
)

func (k EventKind) Valid() bool {
	switch k {
	case TaskCreated, TaskUpdated, TaskDeleted:
		return true
	default:
		return false
	}
}

// SprintScope is the sprint component of a room address: either a concrete
// sprint or the "all" sentinel used when a task has no sprint.
type SprintScope struct {
	id  int64
	set bool
}

// AllSprints is the "all" scope.
func AllSprints() SprintScope { return SprintScope{} }

// ScopeOf maps an optional sprint id to its scope; nil means "all".
func ScopeOf(sprintID *int64) SprintScope {
	if sprintID == nil {
		return SprintScope{}
	}
	return SprintScope{id: *sprintID, set: true}
}

// SprintID returns the concrete sprint, or false for the "all" scope.
func (s SprintScope) SprintID() (int64, bool) { return s.id, s.set }

func (s SprintScope) String() string {
	if !s.set {
		return "all"
	}
	return strconv.FormatInt(s.id, 10)
}

// Room addresses a board fan-out scope. Rooms are comparable and usable as map keys.
type Room struct {
	ProjectID int64
	Scope     SprintScope
}

// RoomFor builds the room for a project and optional sprint.
func RoomFor(projectID int64, sprintID *int64) Room {
	return Room{ProjectID: projectID, Scope: ScopeOf(sprintID)}
}

func (r Room) String() string {
	return "board:" + strconv.FormatInt(r.ProjectID, 10) + ":" + r.Scope.String()
}

// TaskEvent is a task lifecycle change addressed to a board room.
// Task is set for created/updated events, TaskID for deleted ones.
type TaskEvent struct {
	Kind      EventKind
	ProjectID int64
	SprintID  *int64
	Task      *Task
	TaskID    int64
}

// DeletedPayload is the body of a TaskDeleted event.
type DeletedPayload struct {
	TaskID int64 `json:"taskId"`
}

// NewTaskEvent builds a created/updated event from the committed task.
func NewTaskEvent(kind EventKind, t *Task) TaskEvent {
	return TaskEvent{Kind: kind, ProjectID: t.ProjectID, SprintID: t.SprintID, Task: t, TaskID: t.ID}
}

// NewDeletedEvent builds a deleted event from the task's pre-deletion placement.
func NewDeletedEvent(projectID int64, sprintID *int64, taskID int64) TaskEvent {
	return TaskEvent{Kind: TaskDeleted, ProjectID: projectID, SprintID: sprintID, TaskID: taskID}
}

func (e TaskEvent) Room() Room { return RoomFor(e.ProjectID, e.SprintID) }

// Payload is the event data delivered to clients.
func (e TaskEvent) Payload() any {
	if e.Kind == TaskDeleted {
		return DeletedPayload{TaskID: e.TaskID}
	}
	return e.Task
}

// PublishRequest is the body of POST /broadcast.
type PublishRequest struct {
	ProjectID *int64          `json:"projectId"`
	SprintID  *int64          `json:"sprintId"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
}

var ErrPublishIncomplete = errors.New("projectId and event required")

// Validate rejects requests that cannot be addressed to a room.
func (p *PublishRequest) Validate() error {
	if p.ProjectID == nil || p.Event == "" {
		return ErrPublishIncomplete
	}
	return nil
}

// Room returns the target room. Only valid after Validate succeeds.
func (p *PublishRequest) Room() Room {
	return RoomFor(*p.ProjectID, p.SprintID)
}

// NewPublishRequest encodes a task event for the hub.
func NewPublishRequest(e TaskEvent) (*PublishRequest, error) {
	data, err := json.Marshal(e.Payload())
	if err != nil {
		return nil, err
	}
	pid := e.ProjectID
	return &PublishRequest{ProjectID: &pid, SprintID: e.SprintID, Event: string(e.Kind), Data: data}, nil
}

// Client commands sent over the socket.
const (
	CommandJoinBoard  = "join-board"
	CommandLeaveBoard = "leave-board"
)

// Frame is a named message on the hub socket, in either direction.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// BoardRef is the data of join-board and leave-board commands.
type BoardRef struct {
	ProjectID *int64 `json:"projectId"`
	SprintID  *int64 `json:"sprintId,omitempty"`
}

// Room returns the addressed room, or false when no project is given.
func (b BoardRef) Room() (Room, bool) {
	if b.ProjectID == nil {
		return Room{}, false
	}
	return RoomFor(*b.ProjectID, b.SprintID), true
}
