package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// socket adapts a websocket connection to Conn. Frames are queued and written
// in order by a single writer goroutine.
type socket struct {
	id    string
	conn  *websocket.Conn
	queue chan []byte
	done  chan struct{}
	once  sync.Once
}

func newSocket(id string, conn *websocket.Conn, queueSize int) *socket {
	return &socket{
		id:    id,
		conn:  conn,
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
}

func (s *socket) ID() string { return s.id }

func (s *socket) Send(msg []byte) error {
	select {
	case <-s.done:
		return ErrConnClosed
	default:
	}
	select {
	case s.queue <- msg:
		return nil
	case <-s.done:
		return ErrConnClosed
	default:
		return ErrSendQueueFull
	}
}

func (s *socket) Close(reason string) {
	s.once.Do(func() {
		close(s.done)
		go func() {
			_ = s.conn.Close(websocket.StatusPolicyViolation, reason)
		}()
	})
}

// writeLoop drains the queue and pings the peer until the socket closes.
// A failed write or ping closes the socket, which also ends the read loop.
func (s *socket) writeLoop(ctx context.Context, pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case msg := <-s.queue:
			if err := s.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				log.Debug().Err(err).Str("conn_id", s.id).Msg("websocket write")
				s.Close("write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingInterval)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				log.Debug().Err(err).Str("conn_id", s.id).Msg("websocket ping")
				s.Close("ping timeout")
				return
			}
		}
	}
}
