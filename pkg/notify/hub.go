package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/plml/oscquery-go/pkg/log"
	"github.com/plml/oscquery-go/pkg/metrics"
	"github.com/plml/oscquery-go/pkg/tree"
	"github.com/plml/oscquery-go/pkg/wire"
)

// ErrTransport wraps socket failures of a single session.
var ErrTransport = errors.New("subscription transport fault")

// ErrClosed is returned by operations on a closed hub.
var ErrClosed = errors.New("hub closed")

// Default session settings.
const (
	DefaultQueueSize    = 256
	DefaultWriteTimeout = 5 * time.Second
	DefaultPongWait     = 60 * time.Second
	DefaultReadLimit    = 64 * 1024
)

// Config configures a Hub.
type Config struct {
	// Logger for operational messages. Nil uses slog.Default().
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *metrics.Metrics

	// ProtocolLogger captures commands and pushes. May be nil.
	ProtocolLogger log.Logger

	// QueueSize is the per-session send buffer.
	QueueSize int

	// WriteTimeout bounds one frame write.
	WriteTimeout time.Duration

	// PongWait is how long a silent peer is kept. Pings go out at 9/10 of it.
	PongWait time.Duration
}

// DefaultConfig returns the default hub configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize:    DefaultQueueSize,
		WriteTimeout: DefaultWriteTimeout,
		PongWait:     DefaultPongWait,
	}
}

func (c *Config) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.PongWait <= 0 {
		c.PongWait = DefaultPongWait
	}
}

// Hub owns the subscription sessions of one tree. It implements
// tree.Observer and http.Handler.
type Hub struct {
	tree     *tree.Tree
	config   Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	plog     log.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
	active   *session
	closed   bool

	wg sync.WaitGroup
}

// NewHub creates a hub serving t. Install it with t.SetObserver to receive
// pushes.
func NewHub(t *tree.Tree, config Config) *Hub {
	config.applyDefaults()
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		tree:    t,
		config:  config,
		logger:  logger.With("component", "notify"),
		metrics: config.Metrics,
		plog:    log.OrNoop(config.ProtocolLogger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}
}

// IsUpgrade reports whether r asks for a websocket upgrade.
func IsUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}

// ServeHTTP upgrades the request and makes the new session the active one.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered the request.
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s := newSession(h, conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.closeWith(websocket.CloseGoingAway, "shutting down")
		return
	}
	prev := h.active
	h.sessions[s.id] = s
	h.active = s
	h.wg.Add(2)
	h.mu.Unlock()

	h.metrics.SessionOpened()
	h.logger.Info("session opened", "session", s.id, "remote", s.remote)
	h.logSession(s, "", "ACTIVE")
	if prev != nil {
		h.logger.Info("session replaced as push target", "session", prev.id, "by", s.id)
		h.logSession(prev, "ACTIVE", "INACTIVE")
	}

	go s.writeLoop()
	go s.readLoop()
}

// ValueChanged implements tree.Observer.
func (h *Hub) ValueChanged(path string, v tree.Value) {
	msg := wire.NewMessage(path, v.Arg())
	data, err := wire.EncodeMessage(&msg)
	if err != nil {
		h.logger.Error("encode value push", "path", path, "error", err)
		return
	}
	if h.push(outFrame{kind: websocket.BinaryMessage, data: data, command: "VALUE", message: &msg}) {
		h.metrics.NotificationSent("VALUE")
	}
}

// PathAdded implements tree.Observer.
func (h *Hub) PathAdded(path string) {
	cmd := wire.Command{Command: wire.CommandPathAdded, Data: path}
	data, err := json.Marshal(cmd)
	if err != nil {
		h.logger.Error("encode path push", "path", path, "error", err)
		return
	}
	if h.push(outFrame{kind: websocket.TextMessage, data: data, command: wire.CommandPathAdded, path: path}) {
		h.metrics.NotificationSent(wire.CommandPathAdded)
	}
}

// push queues f on the active session without blocking.
func (h *Hub) push(f outFrame) bool {
	h.mu.Lock()
	s := h.active
	h.mu.Unlock()

	if s == nil || !s.enqueue(f) {
		h.metrics.NotificationDropped()
		return false
	}
	return true
}

// ActiveSession returns the ID of the push target, or "".
func (h *Hub) ActiveSession() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return ""
	}
	return h.active.id
}

// Sessions returns the number of open sessions.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close sends a normal-closure frame to every session, closes them and
// waits for their goroutines. New upgrades are refused afterwards.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.closeWith(websocket.CloseNormalClosure, "server shutdown"); err != nil {
			errs = append(errs, err)
		}
	}
	h.wg.Wait()
	return errors.Join(errs...)
}

// remove drops a finished session.
func (h *Hub) remove(s *session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.id)
	if h.active == s {
		h.active = nil
	}
	h.mu.Unlock()

	h.metrics.SessionClosed()
	h.logger.Info("session closed", "session", s.id)
	h.logSession(s, "", "CLOSED")
}

// handleCommand applies one inbound text frame.
func (h *Hub) handleCommand(s *session, data []byte) {
	var cmd wire.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		h.logger.Warn("malformed subscription command", "session", s.id, "error", err)
		h.logError(s, "malformed command", err)
		return
	}
	path, ok := cmd.Data.(string)
	if !ok {
		h.logger.Warn("subscription command without path", "session", s.id, "command", cmd.Command)
		h.logError(s, "command without path", fmt.Errorf("DATA is %T", cmd.Data))
		return
	}

	log.Stamp(h.plog, log.Event{
		SessionID:  s.id,
		RemoteAddr: s.remote,
		Direction:  log.DirectionIn,
		Channel:    log.ChannelSubscription,
		Category:   log.CategoryCommand,
		Command:    &log.CommandEvent{Command: cmd.Command, Data: path},
	})

	var listen bool
	switch strings.ToUpper(cmd.Command) {
	case wire.CommandListen:
		listen = true
	case wire.CommandIgnore:
		listen = false
	default:
		h.logger.Warn("unknown subscription command", "session", s.id, "command", cmd.Command)
		return
	}
	if err := h.tree.SetListening(path, listen); err != nil {
		h.logger.Warn("subscription command rejected", "session", s.id, "command", cmd.Command, "error", err)
		h.logError(s, cmd.Command, err)
		return
	}
	h.logger.Debug("listening changed", "session", s.id, "path", tree.Normalize(path), "listening", listen)
}

func (h *Hub) logSession(s *session, oldState, newState string) {
	log.Stamp(h.plog, log.Event{
		SessionID:  s.id,
		RemoteAddr: s.remote,
		Channel:    log.ChannelSubscription,
		Category:   log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: oldState,
			NewState: newState,
		},
	})
}

func (h *Hub) logError(s *session, context string, err error) {
	log.Stamp(h.plog, log.Event{
		SessionID:  s.id,
		RemoteAddr: s.remote,
		Direction:  log.DirectionIn,
		Channel:    log.ChannelSubscription,
		Category:   log.CategoryError,
		Error:      &log.ErrorEventData{Message: err.Error(), Context: context},
	})
}

var (
	_ tree.Observer = (*Hub)(nil)
	_ http.Handler  = (*Hub)(nil)
)

func newSessionID() string { return uuid.NewString() }
