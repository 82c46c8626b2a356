package boardsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/gosuda/taskboard/internal/domain"
)

var ErrClosed = errors.New("boardsync: synchronizer closed")

const commandTimeout = 5 * time.Second

// Options tune a Synchronizer.
type Options struct {
	// ReconnectInterval is the minimum spacing between dial attempts.
	ReconnectInterval time.Duration
	// OnChange is called for every event read from the hub, after it is
	// applied to the cache. It runs on the read goroutine.
	OnChange func(Change)
	// OnConnect is called after every (re)connect once the current view is
	// joined, before any event is read. Events missed while disconnected are
	// not replayed by the hub, so this is where callers reload the cache.
	OnConnect func(ctx context.Context)
}

// Synchronizer keeps a Cache in step with the board the user is viewing.
// The hub connection is opened on the first view that names a project and
// re-opened after every disconnect; each (re)connect joins the current view.
type Synchronizer struct {
	dialer   Dialer
	cache    *Cache
	limiter   *rate.Limiter
	onChange  func(Change)
	onConnect func(ctx context.Context)

	mu     sync.Mutex
	view   domain.BoardRef
	conn   Conn
	joined *domain.BoardRef

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func New(dialer Dialer, cache *Cache, opts Options) *Synchronizer {
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = 2 * time.Second
	}
	return &Synchronizer{
		dialer:    dialer,
		cache:     cache,
		limiter:   rate.NewLimiter(rate.Every(opts.ReconnectInterval), 1),
		onChange:  opts.OnChange,
		onConnect: opts.OnConnect,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Cache returns the cache being kept in step.
func (s *Synchronizer) Cache() *Cache { return s.cache }

// SetView switches the viewed board. On a live connection the old room is
// left before the new one is joined. A nil projectID only leaves.
func (s *Synchronizer) SetView(ctx context.Context, projectID, sprintID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed() {
		return ErrClosed
	}

	next := domain.BoardRef{ProjectID: projectID, SprintID: sprintID}
	s.view = next

	if s.conn != nil {
		nextRoom, hasNext := next.Room()
		if s.joined != nil {
			prevRoom, _ := s.joined.Room()
			if hasNext && prevRoom == nextRoom {
				return nil
			}
			if err := s.command(ctx, domain.CommandLeaveBoard, *s.joined); err != nil {
				return fmt.Errorf("boardsync.Synchronizer.SetView: leave: %w", err)
			}
			s.joined = nil
		}
		if hasNext {
			if err := s.command(ctx, domain.CommandJoinBoard, next); err != nil {
				return fmt.Errorf("boardsync.Synchronizer.SetView: join: %w", err)
			}
			s.joined = &next
		}
	}

	if projectID != nil {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Run maintains the hub connection until ctx ends or Close is called.
func (s *Synchronizer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.awaitView(ctx); err != nil {
		return s.exitErr(ctx)
	}

	for {
		if err := s.limiter.Wait(ctx); err != nil || s.closed() {
			return s.exitErr(ctx)
		}

		conn, err := s.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return s.exitErr(ctx)
			}
			log.Warn().Err(err).Msg("boardsync: dial hub")
			continue
		}

		if err := s.attach(ctx, conn); err != nil {
			s.detach(conn)
			if errors.Is(err, ErrClosed) {
				return nil
			}
			log.Warn().Err(err).Msg("boardsync: join on connect")
			continue
		}
		log.Debug().Msg("boardsync: connected")
		if s.onConnect != nil {
			s.onConnect(ctx)
		}

		s.readLoop(ctx, conn)
		s.detach(conn)
		if ctx.Err() != nil || s.closed() {
			return s.exitErr(ctx)
		}
		log.Info().Msg("boardsync: hub connection lost, reconnecting")
	}
}

// Close leaves the current room and closes the hub connection. Run returns
// once Close has been called.
func (s *Synchronizer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		close(s.done)

		if s.conn == nil {
			return
		}
		if s.joined != nil {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			if leaveErr := s.command(ctx, domain.CommandLeaveBoard, *s.joined); leaveErr != nil {
				log.Debug().Err(leaveErr).Msg("boardsync: leave on close")
			}
			cancel()
			s.joined = nil
		}
		if closeErr := s.conn.Close(); closeErr != nil {
			err = fmt.Errorf("boardsync.Synchronizer.Close: %w", closeErr)
		}
		s.conn = nil
	})
	return err
}

func (s *Synchronizer) awaitView(ctx context.Context) error {
	for {
		s.mu.Lock()
		ready := s.view.ProjectID != nil
		s.mu.Unlock()
		if ready {
			return nil
		}
		select {
		case <-s.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// attach installs conn and joins the room of the current view.
func (s *Synchronizer) attach(ctx context.Context, conn Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed() {
		return ErrClosed
	}

	s.conn = conn
	s.joined = nil
	if _, ok := s.view.Room(); !ok {
		return nil
	}
	view := s.view
	cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := s.command(cmdCtx, domain.CommandJoinBoard, view); err != nil {
		return err
	}
	s.joined = &view
	return nil
}

func (s *Synchronizer) detach(conn Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.joined = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Synchronizer) readLoop(ctx context.Context, conn Conn) {
	for {
		msg, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Debug().Err(err).Msg("boardsync: read")
			}
			return
		}

		var f domain.Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			log.Debug().Err(err).Msg("boardsync: malformed frame")
			continue
		}
		change, err := s.cache.Apply(f)
		if err != nil {
			log.Debug().Err(err).Str("event", f.Event).Msg("boardsync: apply")
			continue
		}
		if s.onChange != nil {
			s.onChange(change)
		}
	}
}

// command writes a join/leave frame. The caller holds s.mu.
func (s *Synchronizer) command(ctx context.Context, event string, ref domain.BoardRef) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(domain.Frame{Event: event, Data: data})
	if err != nil {
		return err
	}
	return s.conn.Write(ctx, msg)
}

func (s *Synchronizer) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Synchronizer) exitErr(ctx context.Context) error {
	if s.closed() {
		return nil
	}
	return ctx.Err()
}
