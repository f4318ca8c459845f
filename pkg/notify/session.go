package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/plml/oscquery-go/pkg/log"
	"github.com/plml/oscquery-go/pkg/wire"
)

type outFrame struct {
	kind int
	data []byte

	// for protocol capture
	command string
	path    string
	message *wire.Message
}

// session is one websocket peer. The read loop and the write loop each run
// on their own goroutine; conn writes happen only in the write loop, apart
// from control frames which gorilla allows concurrently.
type session struct {
	hub    *Hub
	id     string
	remote string
	conn   *websocket.Conn
	send   chan outFrame
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func newSession(h *Hub, conn *websocket.Conn) *session {
	return &session{
		hub:    h,
		id:     newSessionID(),
		remote: conn.RemoteAddr().String(),
		conn:   conn,
		send:   make(chan outFrame, h.config.QueueSize),
		done:   make(chan struct{}),
	}
}

// enqueue never blocks. It fails when the session is closing or the queue
// is full.
func (s *session) enqueue(f outFrame) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- f:
		return true
	default:
		return false
	}
}

func (s *session) readLoop() {
	defer s.hub.wg.Done()
	defer s.hub.remove(s)
	defer s.closeWith(websocket.CloseNormalClosure, "")

	pongWait := s.hub.config.PongWait
	s.conn.SetReadLimit(DefaultReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.hub.logger.Warn("session read failed", "session", s.id, "error", fmt.Errorf("%w: %v", ErrTransport, err))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		if kind != websocket.TextMessage {
			s.hub.logger.Debug("ignoring non-text frame", "session", s.id, "type", kind)
			continue
		}
		s.hub.handleCommand(s, data)
	}
}

func (s *session) writeLoop() {
	defer s.hub.wg.Done()

	ticker := time.NewTicker(s.hub.config.PongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case f := <-s.send:
			if err := s.write(f.kind, f.data); err != nil {
				s.hub.logger.Warn("session write failed", "session", s.id, "error", err)
				s.closeWith(websocket.CloseInternalServerErr, "write failed")
				return
			}
			s.capture(f)
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.closeWith(websocket.CloseInternalServerErr, "ping failed")
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *session) write(kind int, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.config.WriteTimeout))
	if err := s.conn.WriteMessage(kind, data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// closeWith sends a close frame with code and closes the connection once.
func (s *session) closeWith(code int, reason string) error {
	s.closeOnce.Do(func() {
		close(s.done)
		deadline := time.Now().Add(s.hub.config.WriteTimeout)
		msg := websocket.FormatCloseMessage(code, reason)
		if err := s.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && err != websocket.ErrCloseSent {
			s.closeErr = fmt.Errorf("%w: session %s: %v", ErrTransport, s.id, err)
		}
		_ = s.conn.Close()
	})
	return s.closeErr
}

func (s *session) capture(f outFrame) {
	e := log.Event{
		SessionID:  s.id,
		RemoteAddr: s.remote,
		Direction:  log.DirectionOut,
		Channel:    log.ChannelSubscription,
	}
	switch {
	case f.message != nil:
		e.Category = log.CategoryMessage
		e.Message = &log.MessageEvent{Address: f.message.Address, Args: f.message.Args}
	default:
		e.Category = log.CategoryCommand
		e.Command = &log.CommandEvent{Command: f.command, Data: f.path}
	}
	log.Stamp(s.hub.plog, e)
}
