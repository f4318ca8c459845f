package discovery

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service types.
const (
	// ServiceTypeControl is the control-message service (UDP).
	ServiceTypeControl = "_osc._udp"

	// ServiceTypeQuery is the HTTP query service.
	ServiceTypeQuery = "_oscjson._tcp"

	// Domain is the mDNS domain.
	Domain = "local"
)

// TXT record keys.
const (
	TXTKeyVersion = "txtvers"
)

// Timing constants.
const (
	// DefaultProbeTimeout bounds the network probe before advertising.
	DefaultProbeTimeout = 1500 * time.Millisecond

	// BrowseTimeout is the default timeout for browsing.
	BrowseTimeout = 3 * time.Second

	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// MaxInstanceNameLen is the DNS label limit.
const MaxInstanceNameLen = 63

// Discovery errors.
var (
	ErrCollision           = errors.New("service name already advertised")
	ErrNotFound            = errors.New("service not found")
	ErrInvalidService      = errors.New("invalid service")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrInterface           = errors.New("unknown network interface")
)

// Service is one advertisement.
type Service struct {
	// Instance is the human-readable service name, e.g. "Test".
	Instance string

	// Type is ServiceTypeControl or ServiceTypeQuery.
	Type string

	Port int

	// Text holds optional TXT records.
	Text TXTRecordMap
}

// Validate checks that the service can be advertised.
func (s Service) Validate() error {
	if err := ValidateInstanceName(s.Instance); err != nil {
		return err
	}
	if s.Type == "" {
		return fmt.Errorf("%w: missing service type", ErrInvalidService)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidService, s.Port)
	}
	return nil
}

// Key identifies an advertisement. Instance names compare case-insensitively.
func (s Service) Key() string {
	return strings.ToLower(s.Instance) + "." + s.Type
}

// String returns "Instance._type._proto:port".
func (s Service) String() string {
	return fmt.Sprintf("%s.%s:%d", s.Instance, s.Type, s.Port)
}

// ServiceEntry is a service found while browsing.
type ServiceEntry struct {
	Instance  string
	Type      string
	Host      string
	Port      int
	Addresses []string
	Text      TXTRecordMap
}
