package discovery

import (
	"context"
	"net"
	"sort"
)

// Resolver is an interface for DNS resolution operations.
// This interface allows for mocking DNS resolution in tests.
type Resolver interface {
	// LookupHost looks up the given host using the local resolver.
	// It returns a slice of that host's addresses.
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// defaultResolver wraps the standard library's net.Resolver.
type defaultResolver struct {
	resolver *net.Resolver
}

// NewDefaultResolver creates a resolver that uses the system DNS configuration.
func NewDefaultResolver() Resolver {
	return &defaultResolver{
		resolver: net.DefaultResolver,
	}
}

// LookupHost implements the Resolver interface using net.Resolver.
func (r *defaultResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return r.resolver.LookupHost(ctx, host)
}

// DNSStrategy discovers peers by resolving a headless Service name.
// Cluster DNS returns one address per ready pod behind the Service, so this
// needs no RBAC or API server access at all. The trade-off is detail: DNS
// only yields addresses, so pod names, node placement, and restart counts
// are unavailable.
type DNSStrategy struct {
	resolver Resolver
	dnsName  string
}

// NewDNSStrategy creates a DNS discovery strategy for the given headless
// Service DNS name (<service>.<namespace>.svc.cluster.local).
func NewDNSStrategy(dnsName string) *DNSStrategy {
	return NewDNSStrategyWithResolver(dnsName, NewDefaultResolver())
}

// NewDNSStrategyWithResolver creates a DNS strategy with a custom resolver.
// This is useful for testing without real cluster DNS.
func NewDNSStrategyWithResolver(dnsName string, resolver Resolver) *DNSStrategy {
	return &DNSStrategy{
		resolver: resolver,
		dnsName:  dnsName,
	}
}

// Name identifies this strategy in logs and metrics.
func (s *DNSStrategy) Name() string {
	return "headless-dns"
}

// Discover resolves the headless Service name and maps every distinct
// address to a peer. Pods only appear in headless DNS while they are ready,
// so every record is reported as Running and ready.
func (s *DNSStrategy) Discover(ctx context.Context) ([]Peer, error) {
	addrs, err := s.resolver.LookupHost(ctx, s.dnsName)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(addrs))
	peers := make([]Peer, 0, len(addrs))
	for _, addr := range addrs {
		if seen[addr] {
			continue
		}
		seen[addr] = true
		peers = append(peers, Peer{
			Name:     addr, // DNS gives addresses, not pod names
			IP:       addr,
			Node:     "unknown",
			Phase:    "Running",
			Ready:    true,
			Restarts: 0,
		})
	}

	sort.Slice(peers, func(i, j int) bool {
		return peers[i].IP < peers[j].IP
	})

	return peers, nil
}
