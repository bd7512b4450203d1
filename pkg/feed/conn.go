package feed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrCleanClose marks a server-initiated normal closure (close code 1000).
// The manager treats it as an intentional shutdown and does not reconnect.
var ErrCleanClose = errors.New("connection closed normally")

// Conn is a single streaming connection.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Ping(deadline time.Time) error
	Close() error
}

// Dialer opens connections. Tests substitute a fake.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// GorillaDialer dials real WebSocket endpoints.
type GorillaDialer struct {
	HandshakeTimeout time.Duration
}

func (d *GorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	gc := &gorillaConn{conn: conn}
	conn.SetPongHandler(func(string) error {
		gc.lastPong.Store(time.Now().Unix())
		return nil
	})
	return gc, nil
}

type gorillaConn struct {
	conn     *websocket.Conn
	lastPong atomic.Int64
}

func (c *gorillaConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return nil, fmt.Errorf("%w: %v", ErrCleanClose, err)
		}
		return nil, err
	}
	return data, nil
}

func (c *gorillaConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *gorillaConn) Ping(deadline time.Time) error {
	return c.conn.WriteControl(websocket.PingMessage, []byte{}, deadline)
}

func (c *gorillaConn) Close() error {
	return c.conn.Close()
}
