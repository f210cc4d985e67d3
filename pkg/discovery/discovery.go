// Package discovery produces best-effort, point-in-time snapshots of the
// sibling instances of this service. Two strategies are tried in order: a
// Kubernetes API query (rich records, needs RBAC) and headless-Service DNS
// resolution (addresses only, zero configuration). Every failure mode
// degrades to an empty peer list; discovery never surfaces an error to its
// caller.
package discovery

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/supporttools/kube-probe-demo/pkg/logger"
	"github.com/supporttools/kube-probe-demo/pkg/metrics"
)

// Peer is one discovered sibling instance. Records are rebuilt from scratch
// on every discovery call; nothing persists between snapshots.
type Peer struct {
	// Name is the pod name, or the address when only DNS data is available.
	Name string `json:"name"`
	// IP is the pod address, or "pending" when not yet assigned.
	IP string `json:"ip"`
	// Node is the node the peer runs on, or "unknown".
	Node string `json:"node"`
	// Phase is the pod lifecycle phase (Running, Pending, ...).
	Phase string `json:"phase"`
	// Ready reports whether the peer passes its readiness probe.
	Ready bool `json:"ready"`
	// Restarts is the summed container restart count.
	Restarts int `json:"restarts"`
	// IsSelf marks the record whose address matches this instance.
	IsSelf bool `json:"isSelf"`
}

// Strategy is one way of producing a peer snapshot. Strategies are tried in
// order until one yields a non-empty result; results are never merged.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string
	// Discover returns a sorted peer snapshot, or an error. Callers treat
	// errors and empty results identically.
	Discover(ctx context.Context) ([]Peer, error)
}

// SelfIPFunc resolves the local instance address used for self-detection.
type SelfIPFunc func(ctx context.Context) string

// Config holds configuration for the composed discoverer.
type Config struct {
	// Strategies are tried in priority order.
	Strategies []Strategy
	// Timeout is the overall budget for one composed call (default 3s).
	Timeout time.Duration
	// SelfIP resolves the local address (default: hostname lookup).
	SelfIP SelfIPFunc
	// Metrics is optional instrumentation.
	Metrics *metrics.Metrics
}

// Discoverer executes the strategy chain on a single dedicated worker
// goroutine, so a hanging API call can stall at most the peer table of the
// requests waiting on it, never the request-serving goroutines themselves.
type Discoverer struct {
	strategies []Strategy
	timeout    time.Duration
	selfIP     SelfIPFunc
	metrics    *metrics.Metrics

	mu       sync.Mutex
	requests chan request
	stopChan chan struct{}
	running  bool
}

type request struct {
	ctx context.Context
	out chan []Peer
}

// NewDiscoverer creates a composed discoverer. Start must be called before
// Peers returns anything other than empty results.
func NewDiscoverer(cfg *Config) (*Discoverer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if len(cfg.Strategies) == 0 {
		return nil, fmt.Errorf("at least one strategy is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	selfIP := cfg.SelfIP
	if selfIP == nil {
		selfIP = HostnameSelfIP(NewDefaultResolver())
	}

	return &Discoverer{
		strategies: cfg.Strategies,
		timeout:    timeout,
		selfIP:     selfIP,
		metrics:    cfg.Metrics,
		requests:   make(chan request),
		stopChan:   make(chan struct{}),
	}, nil
}

// Start launches the discovery worker.
func (d *Discoverer) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("discoverer is already running")
	}
	d.running = true

	go d.worker(ctx)
	return nil
}

// Stop shuts the worker down. In-flight callers receive empty results once
// their deadlines expire.
func (d *Discoverer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}
	close(d.stopChan)
	d.running = false
}

// Peers returns a peer snapshot, or an empty slice when discovery is
// unavailable, degraded, or over budget. It never returns an error and never
// blocks longer than the configured timeout.
func (d *Discoverer) Peers(ctx context.Context) []Peer {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req := request{ctx: ctx, out: make(chan []Peer, 1)}

	select {
	case d.requests <- req:
	case <-ctx.Done():
		logger.WithField("component", "discovery").Debug("discovery dispatch timed out; worker busy")
		d.observe(start, nil)
		return nil
	case <-d.stopChan:
		return nil
	}

	select {
	case peers := <-req.out:
		d.observe(start, peers)
		return peers
	case <-ctx.Done():
		logger.WithField("component", "discovery").Warn("peer discovery timed out; returning empty result")
		d.observe(start, nil)
		return nil
	}
}

func (d *Discoverer) observe(start time.Time, peers []Peer) {
	if d.metrics != nil {
		d.metrics.ObserveDiscovery(time.Since(start).Seconds(), len(peers))
	}
}

// worker serializes discovery calls. The out channel is buffered, so a
// result arriving after the caller gave up is dropped instead of wedging
// the worker.
func (d *Discoverer) worker(ctx context.Context) {
	for {
		select {
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		case req := <-d.requests:
			req.out <- d.discover(req.ctx)
		}
	}
}

// discover runs the strategy chain. Strategy errors and panics are both
// treated as "no results" so a fault inside a client library can never
// propagate into the request path.
func (d *Discoverer) discover(ctx context.Context) (peers []Peer) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("peer discovery panicked; returning empty result")
			peers = nil
		}
	}()

	for _, strategy := range d.strategies {
		result, err := strategy.Discover(ctx)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"strategy": strategy.Name(),
			}).WithError(err).Debug("discovery strategy failed; trying next")
			if d.metrics != nil {
				d.metrics.RecordDiscovery(strategy.Name(), "error")
			}
			continue
		}
		if len(result) == 0 {
			if d.metrics != nil {
				d.metrics.RecordDiscovery(strategy.Name(), "empty")
			}
			continue
		}
		if d.metrics != nil {
			d.metrics.RecordDiscovery(strategy.Name(), "ok")
		}
		d.markSelf(ctx, result)
		return result
	}

	return nil
}

// markSelf flags the record whose address matches the locally resolved IP.
func (d *Discoverer) markSelf(ctx context.Context, peers []Peer) {
	self := d.selfIP(ctx)
	if self == "" {
		return
	}
	for i := range peers {
		peers[i].IsSelf = peers[i].IP == self
	}
}

// HostnameSelfIP resolves the local address by looking up our own hostname,
// the same address peers see for this pod.
func HostnameSelfIP(resolver Resolver) SelfIPFunc {
	return func(ctx context.Context) string {
		hostname, err := os.Hostname()
		if err != nil {
			return ""
		}
		addrs, err := resolver.LookupHost(ctx, hostname)
		if err != nil || len(addrs) == 0 {
			return ""
		}
		return addrs[0]
	}
}

// StaticSelfIP returns a fixed local address. This is useful for testing
// self-detection without real DNS.
func StaticSelfIP(ip string) SelfIPFunc {
	return func(context.Context) string {
		return ip
	}
}
