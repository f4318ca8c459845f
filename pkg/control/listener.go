package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/plml/oscquery-go/pkg/log"
	"github.com/plml/oscquery-go/pkg/metrics"
	"github.com/plml/oscquery-go/pkg/tree"
	"github.com/plml/oscquery-go/pkg/wire"
)

// ErrTransport wraps socket failures.
var ErrTransport = errors.New("control transport fault")

const (
	// DefaultAddress is the default listen address.
	DefaultAddress = ":9050"

	// MaxDatagramSize is the largest datagram read.
	MaxDatagramSize = 65535

	pollInterval     = 100 * time.Millisecond
	socketBufferSize = 1 << 20
)

// Config configures a Listener.
type Config struct {
	// Address to listen on, host:port. Port 0 picks a free port.
	Address string

	// Logger for operational messages. Nil uses slog.Default().
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *metrics.Metrics

	// ProtocolLogger captures received messages and rejections. May be nil.
	ProtocolLogger log.Logger
}

// Stats are the listener's running counters.
type Stats struct {
	Packets      int64
	Messages     int64
	Rejected     int64
	DecodeErrors int64
}

// Listener reads control datagrams and applies them to a tree.
type Listener struct {
	tree    *tree.Tree
	config  Config
	id      string
	logger  *slog.Logger
	metrics *metrics.Metrics
	plog    log.Logger

	mu       sync.Mutex
	conn     *net.UDPConn
	shutdown chan struct{}
	wg       sync.WaitGroup
	running  atomic.Bool

	packets      atomic.Int64
	messages     atomic.Int64
	rejected     atomic.Int64
	decodeErrors atomic.Int64
}

// NewListener creates a listener for t. Call Start to bind.
func NewListener(t *tree.Tree, config Config) *Listener {
	if config.Address == "" {
		config.Address = DefaultAddress
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		tree:    t,
		config:  config,
		id:      uuid.NewString(),
		logger:  logger.With("component", "control"),
		metrics: config.Metrics,
		plog:    log.OrNoop(config.ProtocolLogger),
	}
}

// Start binds the socket and starts the read loop. A bind failure is
// returned and nothing is left running.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp", l.config.Address)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", l.config.Address, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.config.Address, err)
	}
	if err := conn.SetReadBuffer(socketBufferSize); err != nil {
		l.logger.Warn("could not set socket buffer size", "size", socketBufferSize, "error", err)
	}

	l.conn = conn
	l.shutdown = make(chan struct{})
	l.running.Store(true)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.readLoop(ctx, conn, l.shutdown)
	}()

	l.logger.Info("control listener started", "address", conn.LocalAddr().String())
	l.logState("", "LISTENING", conn.LocalAddr().String())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Stop closes the socket and waits for the read loop to exit.
func (l *Listener) Stop() error {
	if !l.running.CompareAndSwap(true, false) {
		return nil
	}

	l.mu.Lock()
	close(l.shutdown)
	err := l.conn.Close()
	l.mu.Unlock()

	l.wg.Wait()

	l.mu.Lock()
	l.conn = nil
	l.mu.Unlock()

	l.logger.Info("control listener stopped")
	l.logState("LISTENING", "STOPPED", "")
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: close: %v", ErrTransport, err)
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (l *Listener) Stats() Stats {
	return Stats{
		Packets:      l.packets.Load(),
		Messages:     l.messages.Load(),
		Rejected:     l.rejected.Load(),
		DecodeErrors: l.decodeErrors.Load(),
	}
}

func (l *Listener) readLoop(ctx context.Context, conn *net.UDPConn, shutdown <-chan struct{}) {
	buf := make([]byte, MaxDatagramSize)

	for {
		select {
		case <-ctx.Done():
			return
		case <-shutdown:
			return
		default:
		}

		// Wake up periodically to notice shutdown.
		_ = conn.SetReadDeadline(time.Now().Add(pollInterval))

		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Error("control read failed", "error", fmt.Errorf("%w: %v", ErrTransport, err))
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		l.handle(data, from.String())
	}
}

// handle decodes one datagram and applies its messages in order.
func (l *Listener) handle(data []byte, from string) {
	l.packets.Add(1)

	pkt, err := wire.DecodePacket(data)
	l.metrics.ControlPacket(err)
	if err != nil {
		l.decodeErrors.Add(1)
		l.logger.Warn("malformed control packet", "remote", from, "size", len(data), "error", err)
		log.Stamp(l.plog, log.Event{
			SessionID:  l.id,
			RemoteAddr: from,
			Direction:  log.DirectionIn,
			Channel:    log.ChannelControl,
			Category:   log.CategoryError,
			Error:      &log.ErrorEventData{Message: err.Error(), Context: "decode packet"},
		})
		return
	}

	for _, msg := range pkt.Messages() {
		l.apply(msg, from)
	}
}

func (l *Listener) apply(msg wire.Message, from string) {
	l.messages.Add(1)

	err := msg.Validate()
	if err == nil {
		err = l.tree.SetValue(msg.Address, msg.Args)
	}
	l.metrics.ControlMessage(err)

	event := &log.MessageEvent{Address: msg.Address, Args: msg.Args}
	if err != nil {
		l.rejected.Add(1)
		event.Rejection = err.Error()
		l.logger.Warn("control message rejected",
			"remote", from,
			"address", msg.Address,
			"reason", metrics.ResultLabel(err),
			"error", err)
	} else {
		l.logger.Debug("control message applied", "remote", from, "address", msg.Address)
	}

	log.Stamp(l.plog, log.Event{
		SessionID:  l.id,
		RemoteAddr: from,
		Direction:  log.DirectionIn,
		Channel:    log.ChannelControl,
		Category:   log.CategoryMessage,
		Message:    event,
	})
}

func (l *Listener) logState(oldState, newState, reason string) {
	log.Stamp(l.plog, log.Event{
		SessionID: l.id,
		Channel:   log.ChannelControl,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityServer,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
