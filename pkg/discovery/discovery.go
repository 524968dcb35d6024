package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/enbility/zeroconf/v3"
)

// DNS-SD constants for TAK server announcements.
const (
	// ServiceType is the DNS-SD service type for TAK server TLS
	// streaming endpoints.
	ServiceType = "_takserver._ssl._tcp"

	// Domain is the DNS-SD domain.
	Domain = "local."
)

// ErrNotFound indicates no TAK server was discovered before the
// context expired.
var ErrNotFound = errors.New("no TAK server found")

// Server describes one discovered TAK server.
type Server struct {
	// InstanceName is the advertised service instance name.
	InstanceName string

	// Host is the announced hostname.
	Host string

	// Port is the TLS streaming port.
	Port uint16

	// Addresses holds the resolved IP addresses as strings.
	Addresses []string

	// APIVersion is the advertised TAK API version ("api" TXT record),
	// empty when not announced.
	APIVersion string
}

// Addr returns a dialable host:port for the server, preferring the
// first resolved address over the hostname.
func (s *Server) Addr() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(strings.TrimSuffix(host, "."), fmt.Sprintf("%d", s.Port))
}

// Config tunes browsing.
type Config struct {
	// Interface restricts browsing to one named network interface.
	// Empty browses on all interfaces.
	Interface string
}

func (c Config) clientOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if c.Interface != "" {
		if iface, err := net.InterfaceByName(c.Interface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// Browse watches for TAK server announcements until the context is
// done. Each distinct instance is emitted once; addresses seen on
// several interfaces are merged into the first emission.
func Browse(ctx context.Context, cfg Config) (<-chan *Server, error) {
	out := make(chan *Server)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		seen := make(map[string]*Server)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				srv := entryToServer(entry)

				if existing, found := seen[srv.InstanceName]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, srv.Addresses)
					continue
				}
				seen[srv.InstanceName] = srv
				select {
				case out <- srv:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				delete(seen, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, cfg.clientOptions()...)
	}()

	return out, nil
}

// FindFirst returns the first discovered TAK server, or ErrNotFound
// when the context expires first.
func FindFirst(ctx context.Context, cfg Config) (*Server, error) {
	results, err := Browse(ctx, cfg)
	if err != nil {
		return nil, err
	}

	select {
	case srv, ok := <-results:
		if !ok {
			return nil, ErrNotFound
		}
		return srv, nil
	case <-ctx.Done():
		return nil, ErrNotFound
	}
}

// Advertisement announces a TAK server endpoint over DNS-SD. Lab
// deployments and tests use this; production TAK servers usually
// announce themselves.
type Advertisement struct {
	// InstanceName is the service instance name.
	InstanceName string

	// Port is the TLS streaming port.
	Port int

	// APIVersion fills the "api" TXT record when non-empty.
	APIVersion string

	// Interface restricts the announcement to one interface.
	Interface string
}

// Advertiser is a running DNS-SD announcement.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise starts announcing a TAK server endpoint. Call Shutdown
// to withdraw the announcement.
func Advertise(ad Advertisement) (*Advertiser, error) {
	if ad.InstanceName == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	if ad.Port <= 0 {
		return nil, fmt.Errorf("port is required")
	}

	var txt []string
	if ad.APIVersion != "" {
		txt = append(txt, "api="+ad.APIVersion)
	}

	var ifaces []net.Interface
	if ad.Interface != "" {
		iface, err := net.InterfaceByName(ad.Interface)
		if err != nil {
			return nil, fmt.Errorf("unknown interface %q: %w", ad.Interface, err)
		}
		ifaces = []net.Interface{*iface}
	}

	server, err := zeroconf.Register(ad.InstanceName, ServiceType, Domain, ad.Port, txt, ifaces)
	if err != nil {
		return nil, fmt.Errorf("registering service: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the announcement.
func (a *Advertiser) Shutdown() {
	a.server.Shutdown()
}

func entryToServer(entry *zeroconf.ServiceEntry) *Server {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	srv := &Server{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
	}
	for _, record := range entry.Text {
		if v, ok := strings.CutPrefix(record, "api="); ok {
			srv.APIVersion = v
		}
	}
	return srv
}

func mergeAddresses(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range extra {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}
