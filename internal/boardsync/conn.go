package boardsync

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

const maxFrameSize = 1 << 20

// Conn is a hub connection as used by the Synchronizer.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, msg []byte) error
	Close() error
}

// Dialer opens hub connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// WebsocketDialer dials the hub's websocket endpoint.
type WebsocketDialer struct {
	URL    string
	Header http.Header
}

func (d WebsocketDialer) Dial(ctx context.Context) (Conn, error) {
	c, _, err := websocket.Dial(ctx, d.URL, &websocket.DialOptions{HTTPHeader: d.Header})
	if err != nil {
		return nil, fmt.Errorf("boardsync.WebsocketDialer.Dial: %w", err)
	}
	c.SetReadLimit(maxFrameSize)
	return &wsConn{conn: c}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	for {
		typ, msg, err := c.conn.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ == websocket.MessageText {
			return msg, nil
		}
	}
}

func (c *wsConn) Write(ctx context.Context, msg []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, msg)
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
