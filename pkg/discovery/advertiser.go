package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/plml/oscquery-go/pkg/log"
	"github.com/plml/oscquery-go/pkg/metrics"
)

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Logger for operational messages. Nil uses slog.Default().
	Logger *slog.Logger

	// Metrics records advertisement attempts. May be nil.
	Metrics *metrics.Metrics

	// ProtocolLogger captures advertisement state changes. May be nil.
	ProtocolLogger log.Logger
}

// Advertiser probes before advertising and remembers what it registered so
// it can be withdrawn.
type Advertiser struct {
	backend Backend
	logger  *slog.Logger
	metrics *metrics.Metrics
	plog    log.Logger

	mu     sync.Mutex
	active map[string]*advertisement
}

type advertisement struct {
	svc Service
	reg Registration
}

// NewAdvertiser creates an advertiser on top of backend.
func NewAdvertiser(backend Backend, config AdvertiserConfig) *Advertiser {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Advertiser{
		backend: backend,
		logger:  logger.With("component", "discovery"),
		metrics: config.Metrics,
		plog:    log.OrNoop(config.ProtocolLogger),
		active:  make(map[string]*advertisement),
	}
}

// Advertise probes for svc and registers it if the name is free. A name in
// use fails with ErrCollision and leaves the existing advertisement alone.
func (a *Advertiser) Advertise(ctx context.Context, svc Service) error {
	if err := svc.Validate(); err != nil {
		return err
	}
	key := svc.Key()

	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.advertise(ctx, key, svc)
	a.metrics.Advertisement(svc.Type, err)
	if err != nil {
		a.logger.Warn("advertisement failed", "service", svc.String(), "error", err)
		a.logState(svc, "FAILED", err.Error())
		return err
	}
	a.logger.Info("advertised", "service", svc.String())
	a.logState(svc, "ADVERTISED", "")
	return nil
}

func (a *Advertiser) advertise(ctx context.Context, key string, svc Service) error {
	if _, ok := a.active[key]; ok {
		return fmt.Errorf("%s: %w", svc, ErrCollision)
	}
	taken, err := a.backend.Probe(ctx, svc)
	if err != nil {
		return fmt.Errorf("probe %s: %w", svc, err)
	}
	if taken {
		return fmt.Errorf("%s: %w", svc, ErrCollision)
	}
	reg, err := a.backend.Register(ctx, svc)
	if err != nil {
		return fmt.Errorf("register %s: %w", svc, err)
	}
	a.active[key] = &advertisement{svc: svc, reg: reg}
	return nil
}

// Withdraw removes one advertisement.
func (a *Advertiser) Withdraw(svc Service) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ad, ok := a.active[svc.Key()]
	if !ok {
		return fmt.Errorf("%s: %w", svc, ErrNotFound)
	}
	a.withdraw(svc.Key(), ad)
	return nil
}

// WithdrawAll removes every advertisement made by this advertiser.
func (a *Advertiser) WithdrawAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, ad := range a.active {
		a.withdraw(key, ad)
	}
}

func (a *Advertiser) withdraw(key string, ad *advertisement) {
	ad.reg.Shutdown()
	delete(a.active, key)
	a.logger.Info("withdrawn", "service", ad.svc.String())
	a.logState(ad.svc, "WITHDRAWN", "")
}

// Active returns the current advertisements sorted by key.
func (a *Advertiser) Active() []Service {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Service, 0, len(a.active))
	for _, ad := range a.active {
		out = append(out, ad.svc)
	}
	slices.SortFunc(out, func(x, y Service) int { return strings.Compare(x.Key(), y.Key()) })
	return out
}

func (a *Advertiser) logState(svc Service, state, reason string) {
	if reason == "" {
		reason = svc.String()
	}
	log.Stamp(a.plog, log.Event{
		Direction: log.DirectionOut,
		Channel:   log.ChannelDiscovery,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityAdvertisement,
			NewState: state,
			Reason:   reason,
		},
	})
}
