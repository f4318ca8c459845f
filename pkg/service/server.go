package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/plml/oscquery-go/pkg/control"
	"github.com/plml/oscquery-go/pkg/discovery"
	"github.com/plml/oscquery-go/pkg/log"
	"github.com/plml/oscquery-go/pkg/metrics"
	"github.com/plml/oscquery-go/pkg/notify"
	"github.com/plml/oscquery-go/pkg/query"
	"github.com/plml/oscquery-go/pkg/tree"
	"github.com/plml/oscquery-go/pkg/version"
)

// Server exposes one tree over HTTP, UDP and mDNS.
type Server struct {
	config     Config
	tree       *tree.Tree
	logger     *slog.Logger
	plog       log.Logger
	metrics    *metrics.Metrics
	advertiser *discovery.Advertiser

	mu       sync.RWMutex
	state    ServiceState
	handlers []EventHandler

	// Set while running.
	hub           *notify.Hub
	control       *control.Listener
	httpServer    *http.Server
	httpListener  net.Listener
	metricsServer *http.Server
	group         *errgroup.Group
}

// New creates a server for t.
func New(t *tree.Tree, config Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m, err := metrics.New(config.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	backend := config.Backend
	if backend == nil {
		mdns := discovery.DefaultMDNSConfig()
		mdns.Interface = config.Interface
		mdns.ProbeTimeout = config.ProbeTimeout
		backend = discovery.NewMDNSBackend(mdns)
	}

	return &Server{
		config:  config,
		tree:    t,
		logger:  logger.With("component", "service"),
		plog:    log.OrNoop(config.ProtocolLogger),
		metrics: m,
		advertiser: discovery.NewAdvertiser(backend, discovery.AdvertiserConfig{
			Logger:         logger,
			Metrics:        m,
			ProtocolLogger: config.ProtocolLogger,
		}),
		state: StateIdle,
	}, nil
}

// Tree returns the served tree.
func (s *Server) Tree() *tree.Tree {
	return s.tree
}

// State returns the current state.
func (s *Server) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OnEvent registers a handler for server events.
func (s *Server) OnEvent(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// QueryAddr returns the bound HTTP address, or nil when not running.
func (s *Server) QueryAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.httpListener == nil {
		return nil
	}
	return s.httpListener.Addr()
}

// ControlAddr returns the bound UDP address, or nil when not running.
func (s *Server) ControlAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.control == nil {
		return nil
	}
	return s.control.Addr()
}

// Hub returns the subscription hub, or nil when not running.
func (s *Server) Hub() *notify.Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

// Advertised returns the services currently advertised.
func (s *Server) Advertised() []discovery.Service {
	return s.advertiser.Active()
}

// Start binds the query and control ports, then advertises them.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	s.mu.Unlock()

	if err := s.start(ctx); err != nil {
		s.setState(StateIdle)
		s.logState("STARTING", "FAILED", err.Error())
		return err
	}

	s.setState(StateRunning)
	s.logger.Info("server running",
		"name", s.config.ServiceName,
		"query", s.QueryAddr().String(),
		"control", s.ControlAddr().String())
	s.logState("STARTING", "RUNNING", "")
	s.emitEvent(Event{Type: EventStarted})
	return nil
}

func (s *Server) start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.QueryAddress)
	if err != nil {
		return fmt.Errorf("bind query port: %w", err)
	}

	ctrl := control.NewListener(s.tree, control.Config{
		Address:        s.config.ControlAddress,
		Logger:         s.config.Logger,
		Metrics:        s.metrics,
		ProtocolLogger: s.config.ProtocolLogger,
	})
	if err := ctrl.Start(context.WithoutCancel(ctx)); err != nil {
		_ = ln.Close()
		return fmt.Errorf("bind control port: %w", err)
	}
	controlPort := ctrl.Addr().(*net.UDPAddr).Port
	queryPort := ln.Addr().(*net.TCPAddr).Port

	var metricsServer *http.Server
	var metricsListener net.Listener
	if s.config.MetricsAddress != "" {
		metricsListener, err = net.Listen("tcp", s.config.MetricsAddress)
		if err != nil {
			_ = ln.Close()
			_ = ctrl.Stop()
			return fmt.Errorf("bind metrics port: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metricsHandler())
		metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: s.config.ReadHeaderTimeout}
	}

	hubConfig := notify.DefaultConfig()
	hubConfig.Logger = s.config.Logger
	hubConfig.Metrics = s.metrics
	hubConfig.ProtocolLogger = s.config.ProtocolLogger
	if s.config.SessionQueueSize > 0 {
		hubConfig.QueueSize = s.config.SessionQueueSize
	}
	hub := notify.NewHub(s.tree, hubConfig)
	s.tree.SetObserver(hub)

	handler := query.NewHandler(s.tree, query.Config{
		Name:          s.config.ServiceName,
		OSCPort:       controlPort,
		Subscriptions: hub,
		Logger:        s.config.Logger,
		Metrics:       s.metrics,
	})
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	var group errgroup.Group
	group.Go(func() error { return serve(httpServer, ln) })
	if metricsServer != nil {
		group.Go(func() error { return serve(metricsServer, metricsListener) })
	}

	s.mu.Lock()
	s.hub = hub
	s.control = ctrl
	s.httpServer = httpServer
	s.httpListener = ln
	s.metricsServer = metricsServer
	s.group = &group
	s.mu.Unlock()

	if err := s.advertise(ctx, controlPort, queryPort); err != nil {
		_ = s.shutdown(context.WithoutCancel(ctx))
		return err
	}
	return nil
}

func serve(srv *http.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) metricsHandler() http.Handler {
	if g, ok := s.config.Registerer.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// advertise announces the control service, then the query service.
func (s *Server) advertise(ctx context.Context, controlPort, queryPort int) error {
	if s.config.DisableDiscovery {
		return nil
	}
	txt := discovery.TXTRecordMap{discovery.TXTKeyVersion: version.Current}
	services := []discovery.Service{
		{Instance: s.config.ServiceName, Type: discovery.ServiceTypeControl, Port: controlPort, Text: txt},
		{Instance: s.config.ServiceName, Type: discovery.ServiceTypeQuery, Port: queryPort, Text: txt},
	}
	for _, svc := range services {
		err := s.advertiser.Advertise(ctx, svc)
		if err == nil {
			s.emitEvent(Event{Type: EventAdvertised, Service: svc})
			continue
		}
		s.emitEvent(Event{Type: EventAdvertiseFailed, Service: svc, Error: err})
		if s.config.StrictDiscovery {
			return fmt.Errorf("advertise: %w", err)
		}
		s.logger.Warn("advertisement skipped", "service", svc.String(), "error", err)
	}
	return nil
}

// Stop shuts the server down: HTTP server (forced closed after the
// deadline), control listener, subscription sessions, advertisements.
// Every step runs; their errors are joined.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopping
	s.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	err := s.shutdown(ctx)

	s.setState(StateStopped)
	s.logger.Info("server stopped", "error", err)
	s.logState("STOPPING", "STOPPED", "")
	s.emitEvent(Event{Type: EventStopped, Error: err})
	return err
}

func (s *Server) shutdown(ctx context.Context) error {
	s.mu.Lock()
	hub, ctrl := s.hub, s.control
	httpServer, metricsServer := s.httpServer, s.metricsServer
	group := s.group
	s.hub, s.control = nil, nil
	s.httpServer, s.httpListener, s.metricsServer = nil, nil, nil
	s.group = nil
	s.mu.Unlock()

	var errs []error
	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
			_ = httpServer.Close()
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
			_ = metricsServer.Close()
		}
	}
	if ctrl != nil {
		if err := ctrl.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("control stop: %w", err))
		}
	}
	if hub != nil {
		s.tree.SetObserver(nil)
		if err := hub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sessions: %w", err))
		}
	}
	s.advertiser.WithdrawAll()
	if group != nil {
		if err := group.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("serve: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Run starts the server, blocks until ctx is done, then stops it within
// the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

func (s *Server) setState(state ServiceState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Server) emitEvent(event Event) {
	s.mu.RLock()
	handlers := append([]EventHandler(nil), s.handlers...)
	s.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}

func (s *Server) logState(oldState, newState, reason string) {
	log.Stamp(s.plog, log.Event{
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityServer,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
