package discovery

import (
	"context"
	"sync"
)

// Backend is the advertise/probe contract of a discovery protocol.
type Backend interface {
	// Probe reports whether svc's instance name is already in use for its
	// type.
	Probe(ctx context.Context, svc Service) (bool, error)

	// Register announces svc until the returned Registration is shut down.
	Register(ctx context.Context, svc Service) (Registration, error)
}

// Registration is a live advertisement.
type Registration interface {
	Shutdown()
}

// MemoryBackend keeps advertisements in memory. Advertisers sharing one
// MemoryBackend see each other's services.
type MemoryBackend struct {
	mu       sync.Mutex
	services map[string]Service
}

// NewMemoryBackend creates an empty in-memory registry.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{services: make(map[string]Service)}
}

// Probe implements Backend.
func (b *MemoryBackend) Probe(ctx context.Context, svc Service) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.services[svc.Key()]
	return ok, nil
}

// Register implements Backend.
func (b *MemoryBackend) Register(ctx context.Context, svc Service) (Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.services[svc.Key()]; ok {
		return nil, ErrCollision
	}
	b.services[svc.Key()] = svc
	return &memoryRegistration{backend: b, key: svc.Key()}, nil
}

// Services returns the registered services.
func (b *MemoryBackend) Services() []Service {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Service, 0, len(b.services))
	for _, s := range b.services {
		out = append(out, s)
	}
	return out
}

type memoryRegistration struct {
	backend *MemoryBackend
	key     string
	once    sync.Once
}

func (r *memoryRegistration) Shutdown() {
	r.once.Do(func() {
		r.backend.mu.Lock()
		delete(r.backend.services, r.key)
		r.backend.mu.Unlock()
	})
}

var _ Backend = (*MemoryBackend)(nil)
