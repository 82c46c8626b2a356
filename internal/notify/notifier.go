package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
)

// ErrUnexpectedStatus is returned when the hub answers a publish with a non-2xx status.
var ErrUnexpectedStatus = errors.New("notify: unexpected hub status") //nolint:gochecknoglobals // sentinel error

// Publisher delivers a task event to the broadcast hub.
type Publisher interface {
	Publish(ctx context.Context, e domain.TaskEvent) error
}

// Nop discards every event. It is used when no hub is configured.
type Nop struct{}

func (Nop) Publish(context.Context, domain.TaskEvent) error { return nil }

// HTTPPublisher posts events to the hub's /broadcast endpoint.
type HTTPPublisher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPPublisher targets the hub at baseURL. A nil client uses http.DefaultClient.
func NewHTTPPublisher(baseURL string, client *http.Client) *HTTPPublisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPublisher{
		endpoint: strings.TrimRight(baseURL, "/") + "/broadcast",
		client:   client,
	}
}

func (p *HTTPPublisher) Publish(ctx context.Context, e domain.TaskEvent) error {
	req, err := domain.NewPublishRequest(e)
	if err != nil {
		return fmt.Errorf("notify.HTTPPublisher.Publish: encode: %w", err)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("notify.HTTPPublisher.Publish: encode: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify.HTTPPublisher.Publish: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("notify.HTTPPublisher.Publish: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify.HTTPPublisher.Publish: status %d: %w", resp.StatusCode, ErrUnexpectedStatus)
	}
	return nil
}

// ChannelPublisher is the pub/sub side of the Redis transport.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher publishes events on a channel consumed by the hub's Redis ingress.
type RedisPublisher struct {
	pubsub  ChannelPublisher
	channel string
}

func NewRedisPublisher(pubsub ChannelPublisher, channel string) *RedisPublisher {
	return &RedisPublisher{pubsub: pubsub, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, e domain.TaskEvent) error {
	req, err := domain.NewPublishRequest(e)
	if err != nil {
		return fmt.Errorf("notify.RedisPublisher.Publish: encode: %w", err)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("notify.RedisPublisher.Publish: encode: %w", err)
	}
	if err := p.pubsub.Publish(ctx, p.channel, body); err != nil {
		return fmt.Errorf("notify.RedisPublisher.Publish: %w", err)
	}
	return nil
}

// Notifier announces committed task mutations to board viewers. Every call
// returns immediately; delivery happens in the background and failures are
// only logged, so a slow or absent hub never affects the caller.
type Notifier struct {
	publisher Publisher
	timeout   time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Notifier. A nil publisher disables notifications.
func New(publisher Publisher, timeout time.Duration) *Notifier {
	if publisher == nil {
		publisher = Nop{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{publisher: publisher, timeout: timeout}
}

// NotifyCreated announces a new task to its board room.
func (n *Notifier) NotifyCreated(ctx context.Context, t *domain.Task) {
	snapshot := *t
	n.dispatch(ctx, domain.NewTaskEvent(domain.TaskCreated, &snapshot))
}

// NotifyUpdated announces a task's new state to the room it now belongs to.
func (n *Notifier) NotifyUpdated(ctx context.Context, t *domain.Task) {
	snapshot := *t
	n.dispatch(ctx, domain.NewTaskEvent(domain.TaskUpdated, &snapshot))
}

// NotifyDeleted announces a deletion to the room the task was in before it
// was deleted.
func (n *Notifier) NotifyDeleted(ctx context.Context, projectID int64, sprintID *int64, taskID int64) {
	n.dispatch(ctx, domain.NewDeletedEvent(projectID, sprintID, taskID))
}

// Wait blocks until in-flight notifications finish. The Notifier stays
// usable afterwards; callers must not notify concurrently with Wait.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Close stops accepting notifications and waits for in-flight ones. It is
// safe to call while request handlers are still notifying; their
// notifications are dropped.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *Notifier) dispatch(ctx context.Context, e domain.TaskEvent) {
	// Detach from the request so returning the response does not cancel delivery.
	ctx = context.WithoutCancel(ctx)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		log.Debug().
			Str("event", string(e.Kind)).
			Int64("task_id", e.TaskID).
			Msg("notify: dropped after shutdown")
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()

		pubCtx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		if err := n.publisher.Publish(pubCtx, e); err != nil {
			log.Warn().Err(err).
				Str("event", string(e.Kind)).
				Str("room", e.Room().String()).
				Int64("task_id", e.TaskID).
				Msg("notify: publish failed")
		}
	}()
}
