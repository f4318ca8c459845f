package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// MDNSConfig configures the mDNS backend.
type MDNSConfig struct {
	// Interface restricts advertising and probing to one network interface.
	// Empty means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	TTL time.Duration

	// ProbeTimeout bounds the network probe. Zero skips the network probe;
	// the in-process check still runs.
	ProbeTimeout time.Duration
}

// DefaultMDNSConfig returns the default mDNS configuration.
func DefaultMDNSConfig() MDNSConfig {
	return MDNSConfig{
		TTL:          DefaultTTL,
		ProbeTimeout: DefaultProbeTimeout,
	}
}

// processRegistry tracks what this process has registered over mDNS, so two
// registrations of one name collide without waiting for the network.
var processRegistry = struct {
	sync.Mutex
	keys map[string]bool
}{keys: make(map[string]bool)}

func claimLocal(key string) bool {
	processRegistry.Lock()
	defer processRegistry.Unlock()
	if processRegistry.keys[key] {
		return false
	}
	processRegistry.keys[key] = true
	return true
}

func releaseLocal(key string) {
	processRegistry.Lock()
	delete(processRegistry.keys, key)
	processRegistry.Unlock()
}

func isLocal(key string) bool {
	processRegistry.Lock()
	defer processRegistry.Unlock()
	return processRegistry.keys[key]
}

// MDNSBackend implements Backend with zeroconf.
type MDNSBackend struct {
	config  MDNSConfig
	browser *Browser
}

// NewMDNSBackend creates an mDNS backend.
func NewMDNSBackend(config MDNSConfig) *MDNSBackend {
	return &MDNSBackend{
		config:  config,
		browser: NewBrowser(BrowserConfig{Interface: config.Interface, Timeout: config.ProbeTimeout}),
	}
}

// Probe checks this process, then browses the service type for up to
// ProbeTimeout looking for the instance name.
func (b *MDNSBackend) Probe(ctx context.Context, svc Service) (bool, error) {
	if _, err := interfaces(b.config.Interface); err != nil {
		return false, err
	}
	if isLocal(svc.Key()) {
		return true, nil
	}
	if b.config.ProbeTimeout <= 0 {
		return false, nil
	}

	pctx, cancel := context.WithTimeout(ctx, b.config.ProbeTimeout)
	defer cancel()

	_, err := b.browser.Find(pctx, svc.Type, svc.Instance)
	switch {
	case err == nil:
		return true, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(err, ErrNotFound), errors.Is(err, context.DeadlineExceeded):
		return false, nil
	default:
		return false, err
	}
}

// Register announces the service.
func (b *MDNSBackend) Register(ctx context.Context, svc Service) (Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ifaces, err := interfaces(b.config.Interface)
	if err != nil {
		return nil, err
	}
	key := svc.Key()
	if !claimLocal(key) {
		return nil, ErrCollision
	}

	var opts []zeroconf.ServerOption
	if b.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(b.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		svc.Instance,
		svc.Type,
		Domain,
		svc.Port,
		TXTRecordsToStrings(svc.Text),
		ifaces,
		opts...,
	)
	if err != nil {
		releaseLocal(key)
		return nil, fmt.Errorf("failed to register %s: %w", svc.Type, err)
	}
	return &mdnsRegistration{server: server, key: key}, nil
}

type mdnsRegistration struct {
	server *zeroconf.Server
	key    string
	once   sync.Once
}

func (r *mdnsRegistration) Shutdown() {
	r.once.Do(func() {
		r.server.Shutdown()
		releaseLocal(r.key)
	})
}

// interfaces resolves an interface name. Nil means all interfaces.
func interfaces(name string) ([]net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInterface, name, err)
	}
	return []net.Interface{*iface}, nil
}

var _ Backend = (*MDNSBackend)(nil)
