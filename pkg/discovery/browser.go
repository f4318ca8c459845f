package discovery

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browsing.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface.
	Interface string

	// Timeout bounds List when the context has no deadline.
	Timeout time.Duration
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{Timeout: BrowseTimeout}
}

// browseFunc matches zeroconf.Browse.
type browseFunc func(ctx context.Context, service, domain string, entries, removed chan<- *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error

// Browser finds services over mDNS.
type Browser struct {
	config BrowserConfig
	browse browseFunc
}

// NewBrowser creates a browser.
func NewBrowser(config BrowserConfig) *Browser {
	return &Browser{config: config, browse: zeroconf.Browse}
}

// Browse streams services of one type until ctx is done. Entries are
// aggregated by instance name; addresses seen on further interfaces are
// merged into the entry already emitted.
//
// If the mDNS query fails, the failure is sent on the error channel and the
// entry channel is closed. The error channel receives at most one error.
func (b *Browser) Browse(ctx context.Context, serviceType string) (<-chan *ServiceEntry, <-chan error, error) {
	opts, err := b.options()
	if err != nil {
		return nil, nil, err
	}

	out := make(chan *ServiceEntry)
	errc := make(chan error, 1)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	failed := make(chan error, 1)

	go func() {
		defer close(out)

		services := make(map[string]*ServiceEntry)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToService(entry, serviceType)
				key := strings.ToLower(svc.Instance)
				if existing, found := services[key]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				services[key] = svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				key := strings.ToLower(entry.Instance)
				if existing, found := services[key]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(services, key)
					}
				}

			case err := <-failed:
				errc <- fmt.Errorf("browse %s: %w", serviceType, err)
				return

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		err := b.browse(ctx, serviceType, Domain, entries, removed, opts...)
		if err != nil && ctx.Err() == nil {
			failed <- err
		}
	}()

	return out, errc, nil
}

// Find returns the first service of the type whose instance name matches
// case-insensitively. A failed mDNS query is returned as an error rather
// than reported as not found.
func (b *Browser) Find(ctx context.Context, serviceType, instance string) (*ServiceEntry, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, errc, err := b.Browse(ctx, serviceType)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case svc, ok := <-results:
			if !ok {
				return nil, browseResult(errc, ErrNotFound)
			}
			if strings.EqualFold(svc.Instance, instance) {
				return svc, nil
			}
		case err := <-errc:
			return nil, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// List collects the services of one type seen before ctx is done or the
// configured timeout elapses, sorted by instance name.
func (b *Browser) List(ctx context.Context, serviceType string) ([]*ServiceEntry, error) {
	if _, ok := ctx.Deadline(); !ok && b.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}

	results, errc, err := b.Browse(ctx, serviceType)
	if err != nil {
		return nil, err
	}
	var found []*ServiceEntry
	for svc := range results {
		found = append(found, svc)
	}
	if err := browseResult(errc, nil); err != nil {
		return nil, err
	}
	slices.SortFunc(found, func(a, b *ServiceEntry) int {
		return strings.Compare(strings.ToLower(a.Instance), strings.ToLower(b.Instance))
	})
	return found, nil
}

// browseResult returns the browse failure if one was reported, otherwise
// fallback. The entry channel is closed after the error is sent.
func browseResult(errc <-chan error, fallback error) error {
	select {
	case err := <-errc:
		return err
	default:
		return fallback
	}
}

func (b *Browser) options() ([]zeroconf.ClientOption, error) {
	ifaces, err := interfaces(b.config.Interface)
	if err != nil {
		return nil, err
	}
	var opts []zeroconf.ClientOption
	if ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}
	return opts, nil
}

func entryToService(entry *zeroconf.ServiceEntry, serviceType string) *ServiceEntry {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return &ServiceEntry{
		Instance:  entry.Instance,
		Type:      serviceType,
		Host:      entry.HostName,
		Port:      entry.Port,
		Addresses: addrs,
		Text:      StringsToTXTRecords(entry.Text),
	}
}

// mergeAddresses adds new addresses to existing, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	for _, addr := range added {
		if !slices.Contains(existing, addr) {
			existing = append(existing, addr)
		}
	}
	return existing
}

// removeAddresses drops the entry's addresses from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	gone := make(map[string]bool, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		gone[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		gone[ip.String()] = true
	}
	return slices.DeleteFunc(addresses, func(a string) bool { return gone[a] })
}
