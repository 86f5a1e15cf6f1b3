package socketio

import (
	"errors"
	"sync"
	"time"

	"billboard-realtime/internal/hub"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	errConnClosed = errors.New("connection closed")
	errSendFull   = errors.New("send buffer full")
)

// conn is one Engine.IO session. It is the hub.Transport for its id.
type conn struct {
	ws *websocket.Conn
	id string

	send      chan string
	pong      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// connected is only touched by the read loop.
	connected bool
}

func newConn(ws *websocket.Conn, buffer int) *conn {
	return &conn{
		ws:   ws,
		id:   uuid.NewString(),
		send: make(chan string, buffer),
		pong: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Emit queues an event frame without blocking. A full buffer drops the frame.
func (c *conn) Emit(event hub.Event) error {
	frame, err := buildEventFrame(defaultNamespace, event.EventName(), event)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

func (c *conn) enqueue(frame string) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return errSendFull
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *conn) writeLoop() {
	defer c.close()
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
			if frame == string(engineClose) {
				return
			}
		}
	}
}

func (c *conn) readLoop(onMessage func(string)) {
	defer c.close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		onMessage(string(data))
	}
}

// heartbeat pings every interval and closes the session when a pong does
// not arrive within timeout.
func (c *conn) heartbeat(interval, timeout time.Duration) {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-timer.C:
		}

		if err := c.enqueue(string(enginePing)); err != nil && errors.Is(err, errConnClosed) {
			return
		}

		deadline := time.NewTimer(timeout)
		select {
		case <-c.done:
			deadline.Stop()
			return
		case <-c.pong:
			deadline.Stop()
		case <-deadline.C:
			c.close()
			return
		}
		timer.Reset(interval)
	}
}

func (c *conn) markPong() {
	select {
	case c.pong <- struct{}{}:
	default:
	}
}
