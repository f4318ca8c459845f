package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plml/oscquery-go/pkg/discovery"
	"github.com/plml/oscquery-go/pkg/log"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateStarting - ports are being bound and advertised.
	StateStarting

	// StateRunning - service is running normally.
	StateRunning

	// StateStopping - service is shutting down.
	StateStopping

	// StateStopped - service has stopped. It may be started again.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Default ports.
const (
	DefaultQueryPort   = 45321
	DefaultControlPort = 9050
)

// Config configures a Server.
type Config struct {
	// ServiceName is the mDNS instance name and host info NAME.
	ServiceName string

	// QueryAddress is the HTTP listen address (e.g., ":45321").
	QueryAddress string

	// ControlAddress is the UDP listen address (e.g., ":9050").
	ControlAddress string

	// MetricsAddress serves Prometheus metrics at /metrics when set.
	MetricsAddress string

	// DisableDiscovery skips mDNS advertising.
	DisableDiscovery bool

	// StrictDiscovery makes a failed advertisement fatal to Start.
	StrictDiscovery bool

	// Interface restricts mDNS to one network interface.
	Interface string

	// ProbeTimeout bounds the mDNS probe before each advertisement.
	ProbeTimeout time.Duration

	// ShutdownTimeout bounds Stop when its context has no deadline.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout bounds reading HTTP request headers.
	ReadHeaderTimeout time.Duration

	// SessionQueueSize is the per-session push buffer.
	SessionQueueSize int

	// Logger for operational messages. Nil uses slog.Default().
	Logger *slog.Logger

	// ProtocolLogger captures protocol events. May be nil.
	ProtocolLogger log.Logger

	// Registerer receives the server's metrics. Nil disables metrics.
	Registerer prometheus.Registerer

	// Backend overrides the mDNS backend (tests use a MemoryBackend).
	Backend discovery.Backend
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:       "oscquery",
		QueryAddress:      fmt.Sprintf(":%d", DefaultQueryPort),
		ControlAddress:    fmt.Sprintf(":%d", DefaultControlPort),
		ProbeTimeout:      discovery.DefaultProbeTimeout,
		ShutdownTimeout:   5 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if err := discovery.ValidateInstanceName(c.ServiceName); err != nil {
		return fmt.Errorf("%w: service name: %v", ErrInvalidConfig, err)
	}
	for name, addr := range map[string]string{
		"query address":   c.QueryAddress,
		"control address": c.ControlAddress,
	} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrInvalidConfig, name, addr, err)
		}
	}
	if c.MetricsAddress != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddress); err != nil {
			return fmt.Errorf("%w: metrics address %q: %v", ErrInvalidConfig, c.MetricsAddress, err)
		}
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidConfig)
	}
	if c.ProbeTimeout < 0 || c.SessionQueueSize < 0 {
		return fmt.Errorf("%w: negative probe timeout or queue size", ErrInvalidConfig)
	}
	return nil
}

// EventType identifies a server lifecycle event.
type EventType uint8

const (
	// EventStarted - the server is running.
	EventStarted EventType = iota

	// EventStopped - the server has stopped.
	EventStopped

	// EventAdvertised - a service was advertised.
	EventAdvertised

	// EventAdvertiseFailed - an advertisement was skipped (collision or
	// mDNS failure).
	EventAdvertiseFailed
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventStarted:
		return "STARTED"
	case EventStopped:
		return "STOPPED"
	case EventAdvertised:
		return "ADVERTISED"
	case EventAdvertiseFailed:
		return "ADVERTISE_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Event represents a server event.
type Event struct {
	Type EventType

	// Service is set for advertisement events.
	Service discovery.Service

	// Error is set if the event is an error.
	Error error
}

// EventHandler handles server events.
type EventHandler func(Event)
