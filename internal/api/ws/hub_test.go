package ws_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskboard/internal/api/ws"
	"github.com/gosuda/taskboard/internal/domain"
)

// fakeConn records every frame sent to it.
type fakeConn struct {
	id      string
	mu      sync.Mutex
	frames  []domain.Frame
	sendErr error
	closed  bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	var f domain.Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) received() []domain.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func ptr[T any](v T) *T { return &v }

func connected(h *ws.Hub, id string) *fakeConn {
	c := newFakeConn(id)
	h.Register(c)
	return c
}

// --- Join / Publish ---

func TestHub_PublishReachesOnlyRoomMembers(t *testing.T) {
	t.Parallel()

	h := ws.NewHub(ws.Options{})
	a := connected(h, "a")
	b := connected(h, "b")
	other := connected(h, "other")
	all := connected(h, "all")

	h.Join(a, ptr[int64](7), ptr[int64](3))
	h.Join(b, ptr[int64](7), ptr[int64](3))
	h.Join(other, ptr[int64](7), ptr[int64](4))
	h.Join(all, ptr[int64](7), nil)

	res := h.Publish(domain.RoomFor(7, ptr[int64](3)), "TaskUpdated", json.RawMessage(`{"id":12}`))
	assert.Equal(t, ws.PublishResult{Delivered: 2}, res)

	for _, c := range []*fakeConn{a, b} {
		frames := c.received()
		require.Len(t, frames, 1, c.ID())
		assert.Equal(t, "TaskUpdated", frames[0].Event)
		assert.JSONEq(t, `{"id":12}`, string(frames[0].Data))
	}
	assert.Empty(t, other.received())
	assert.Empty(t, all.received())
}

func TestHub_PublishToEmptyRoom(t *testing.T) {
	t.Parallel()

	h := ws.NewHub(ws.Options{})
	res := h.Publish(domain.RoomFor(1, nil), "TaskCreated", json.RawMessage(`{}`))
	assert.Equal(t, ws.PublishResult{}, res)
}

func TestHub_JoinWithoutProjectIsIgnored(t *testing.T) {
	t.Parallel()

	h := ws.NewHub(ws.Options{})
	c := connected(h, "c")
	h.Join(c, nil, ptr[int64](3))

	assert.Empty(t, h.Snapshot())
}

func TestHub_JoinUnregisteredIsIgnored(t *testing.T) {
	t.Parallel()

	h := ws.NewHub(ws.Options{})
	c := newFakeConn("c")
	h.Join(c, ptr[int64](1), nil)

	assert.Equal(t, 0, h.RoomSize(domain.RoomFor(1, nil)))
}

func TestHub_JoinSameRoomTwiceDeliversOnce(t *testing.T) {
	t.Parallel()

	h := ws.NewHub(ws.Options{})
	c := connected(h, "c")
	h.Join(c, ptr[int64](1), nil)
	h.Join(c, ptr[int64](1), nil)

	h.Publish(domain.RoomFor(1, nil), "TaskCreated", json.RawMessage(`{}`))
	assert.Len(t, c.received(), 1)
	assert.Equal(t, 1, h.RoomSize(domain.RoomFor(1, nil)))
}

func TestHub_JoinSwitchesRooms(t *testing.T) {
	t.Parallel()

	h := ws.NewHub(ws.Options{})
	c := connected(h, "c")
	h.Join(c, ptr[int64](1), ptr[int64](1))
	h.Join(c, ptr[int64](1), ptr[int64](2))

	assert.Equal(t, 0, h.RoomSize(domain.RoomFor(1, ptr[int64](1))))
	assert.Equal(t, 1, h.RoomSize(domain.RoomFor(1, ptr[int64](2))))

	h.Publish(domain.RoomFor(1, ptr[int64](1)), "TaskUpdated", json.RawMessage(`{}`))
	assert.Empty(t, c.received())

	h.Publish(domain.RoomFor(1, ptr[int64](2)), "TaskUpdated", json.RawMessage(`{}`))
	assert.Len(t, c.received(), 1)
}

// --- Leave / Drop ---

func TestHub_Leave(t *testing.T) {
	t.Parallel()

	h := ws.NewHub(ws.Options{})
	c := connected(h, "c")
	h.Join(c, ptr[int64](5), nil)

	// Leaving a room the connection is not in changes nothing.
	h.Leave(c, ptr[int64](5), ptr[int64](9))
	assert.Equal(t, 1, h.RoomSize(domain.RoomFor(5, nil)))

	h.Leave(c, ptr[int64](5), nil)
	assert.Equal(t, 0, h.RoomSize(domain.RoomFor(5, nil)))
	assert.Empty(t, h.Snapshot())

	h.Publish(domain.RoomFor(5, nil), "TaskDeleted", json.RawMessage(`{"taskId":1}`))
	assert.Empty(t, c.received())
}

func TestHub_DropRemovesMembership(t *testing.T) {
	t.Parallel()

	h := ws.NewHub(ws.Options{})
	c := connected(h, "c")
	h.Join(c, ptr[int64](5), nil)
	h.Drop(c)

	assert.Equal(t, 0, h.RoomSize(domain.RoomFor(5, nil)))

	// A dropped connection cannot rejoin.
	h.Join(c, ptr[int64](5), nil)
	assert.Equal(t, 0, h.RoomSize(domain.RoomFor(5, nil)))
}

func TestHub_FailedSendDropsConnection(t *testing.T) {
	t.Parallel()

	h := ws.NewHub(ws.Options{})
	ok := connected(h, "ok")
	bad := connected(h, "bad")
	bad.sendErr = ws.ErrSendQueueFull

	h.Join(ok, ptr[int64](2), nil)
	h.Join(bad, ptr[int64](2), nil)

	res := h.Publish(domain.RoomFor(2, nil), "TaskCreated", json.RawMessage(`{}`))
	assert.Equal(t, ws.PublishResult{Delivered: 1, Dropped: 1}, res)
	assert.True(t, bad.isClosed())
	assert.False(t, ok.isClosed())
	assert.Equal(t, 1, h.RoomSize(domain.RoomFor(2, nil)))
}

// --- Ordering / Snapshot ---

func TestHub_PreservesPublishOrder(t *testing.T) {
	t.Parallel()

	h := ws.NewHub(ws.Options{})
	c := connected(h, "c")
	h.Join(c, ptr[int64](1), nil)

	for i := range 50 {
		h.Publish(domain.RoomFor(1, nil), "TaskUpdated", json.RawMessage(fmt.Sprintf(`{"id":%d}`, i)))
	}

	frames := c.received()
	require.Len(t, frames, 50)
	for i, f := range frames {
		assert.JSONEq(t, fmt.Sprintf(`{"id":%d}`, i), string(f.Data))
	}
}

func TestHub_Snapshot(t *testing.T) {
	t.Parallel()

	h := ws.NewHub(ws.Options{})
	h.Join(connected(h, "a"), ptr[int64](1), nil)
	h.Join(connected(h, "b"), ptr[int64](1), nil)
	h.Join(connected(h, "c"), ptr[int64](1), ptr[int64](4))

	assert.Equal(t, map[string]int{
		"board:1:all": 2,
		"board:1:4":   1,
	}, h.Snapshot())
}

func TestHub_ConcurrentMembershipAndPublish(t *testing.T) {
	t.Parallel()

	h := ws.NewHub(ws.Options{})
	target := domain.RoomFor(1, nil)
	stable := connected(h, "stable")
	h.Join(stable, ptr[int64](1), nil)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := connected(h, fmt.Sprintf("c%d", i))
			for j := range 50 {
				h.Join(c, ptr[int64](1), ptr[int64](int64(j%3)))
				h.Join(c, ptr[int64](1), nil)
				h.Leave(c, ptr[int64](1), nil)
			}
			h.Drop(c)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 200 {
			h.Publish(target, "TaskUpdated", json.RawMessage(`{}`))
		}
	}()
	wg.Wait()

	assert.Len(t, stable.received(), 200)
	assert.Equal(t, map[string]int{"board:1:all": 1}, h.Snapshot())
}
