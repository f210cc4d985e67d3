package discovery

import (
	"context"
	"fmt"
	"testing"
)

// mockResolver returns canned addresses or an error.
type mockResolver struct {
	addrs map[string][]string
	err   error
}

func (r *mockResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	addrs, ok := r.addrs[host]
	if !ok {
		return nil, fmt.Errorf("lookup %s: no such host", host)
	}
	return addrs, nil
}

func TestDNSStrategyDiscover(t *testing.T) {
	tests := []struct {
		name    string
		addrs   []string
		wantIPs []string
	}{
		{
			name:    "dedup and sort",
			addrs:   []string{"10.0.0.5", "10.0.0.2", "10.0.0.2"},
			wantIPs: []string{"10.0.0.2", "10.0.0.5"},
		},
		{
			name:    "single address",
			addrs:   []string{"10.0.0.9"},
			wantIPs: []string{"10.0.0.9"},
		},
		{
			name:    "no addresses",
			addrs:   []string{},
			wantIPs: []string{},
		},
	}

	const dnsName = "demo-headless.default.svc.cluster.local"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mockResolver{addrs: map[string][]string{dnsName: tt.addrs}}
			s := NewDNSStrategyWithResolver(dnsName, resolver)

			peers, err := s.Discover(context.Background())
			if err != nil {
				t.Fatalf("Discover() error = %v", err)
			}
			if len(peers) != len(tt.wantIPs) {
				t.Fatalf("Discover() returned %d peers, want %d", len(peers), len(tt.wantIPs))
			}
			for i, want := range tt.wantIPs {
				if peers[i].IP != want {
					t.Errorf("peers[%d].IP = %q, want %q", i, peers[i].IP, want)
				}
			}
		})
	}
}

func TestDNSStrategyRecordShape(t *testing.T) {
	const dnsName = "demo-headless.default.svc.cluster.local"
	resolver := &mockResolver{addrs: map[string][]string{dnsName: {"10.0.0.3"}}}
	s := NewDNSStrategyWithResolver(dnsName, resolver)

	peers, err := s.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(peers) != 1 {
		t.Fatalf("Discover() returned %d peers, want 1", len(peers))
	}

	// DNS only yields addresses; everything richer is fixed.
	p := peers[0]
	if p.Name != "10.0.0.3" {
		t.Errorf("Name = %q, want the address", p.Name)
	}
	if p.Node != "unknown" {
		t.Errorf("Node = %q, want unknown", p.Node)
	}
	if p.Phase != "Running" {
		t.Errorf("Phase = %q, want Running", p.Phase)
	}
	if !p.Ready {
		t.Error("Ready = false, want true (DNS only lists ready pods)")
	}
	if p.Restarts != 0 {
		t.Errorf("Restarts = %d, want 0", p.Restarts)
	}
}

func TestDNSStrategyResolutionFailure(t *testing.T) {
	s := NewDNSStrategyWithResolver("missing.default.svc.cluster.local", &mockResolver{})

	peers, err := s.Discover(context.Background())
	if err == nil {
		t.Error("Discover() error = nil, want resolution error")
	}
	if len(peers) != 0 {
		t.Errorf("Discover() returned %d peers on failure, want 0", len(peers))
	}
}
