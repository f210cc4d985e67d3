// Package server exposes the HTTP surface of the probe demo: the three
// Kubernetes probe endpoints, the demo toggle endpoints, and the HTML pages
// that render instance state and the peer table.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/supporttools/kube-probe-demo/pkg/discovery"
	"github.com/supporttools/kube-probe-demo/pkg/logger"
	"github.com/supporttools/kube-probe-demo/pkg/metrics"
	"github.com/supporttools/kube-probe-demo/pkg/probe"
	"github.com/supporttools/kube-probe-demo/pkg/types"
)

// Server serves the probe demo HTTP endpoints.
type Server struct {
	config     *types.Config
	state      *probe.State
	discoverer *discovery.Discoverer
	metrics    *metrics.Metrics
	selfIP     discovery.SelfIPFunc
	httpServer *http.Server

	mu      sync.Mutex
	started bool
}

// New creates the server. The probe state and discoverer are injected so
// handlers share them with the rest of the process; there is no ambient
// global state.
func New(config *types.Config, state *probe.State, discoverer *discovery.Discoverer, m *metrics.Metrics) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if state == nil {
		return nil, fmt.Errorf("probe state cannot be nil")
	}
	if discoverer == nil {
		return nil, fmt.Errorf("discoverer cannot be nil")
	}

	return &Server{
		config:     config,
		state:      state,
		discoverer: discoverer,
		metrics:    m,
		selfIP:     discovery.HostnameSelfIP(discovery.NewDefaultResolver()),
	}, nil
}

// SetSelfIP overrides local address resolution. This is useful for testing
// without cluster DNS.
func (s *Server) SetSelfIP(fn discovery.SelfIPFunc) {
	s.selfIP = fn
}

// Handler builds the route table. Exposed separately from Start so tests can
// drive the handlers through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/startup", s.handleStartup)
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/info", s.handleInfo)
	mux.HandleFunc("/toggle-health", s.handleToggleHealth)
	mux.HandleFunc("/toggle-ready", s.handleToggleReady)
	mux.HandleFunc("/stress", s.handleStress)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// Start starts the HTTP server in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("server already started")
	}

	s.httpServer = &http.Server{
		Addr:        s.config.ListenAddr(),
		Handler:     s.Handler(),
		ReadTimeout: 5 * time.Second,
		// The stress endpoint holds a response for ~2s of CPU burn.
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Infof("HTTP server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server failed")
		}
	}()

	s.started = true
	return nil
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.started = false
	logger.Info("HTTP server stopped")
	return nil
}

// baseView fills the view fields shared by every page.
func (s *Server) baseView(r *http.Request) view {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = s.config.PodName
	}

	return view{
		PodName:             s.config.PodName,
		Namespace:           s.config.Namespace,
		NodeName:            s.config.NodeName,
		Version:             s.config.Version,
		Service:             s.config.ServiceName,
		Hostname:            hostname,
		IP:                  s.selfIP(r.Context()),
		Uptime:              fmt.Sprintf("%.1fs", s.state.Uptime().Seconds()),
		PeerPort:            s.config.Port,
		StartupDelaySeconds: s.config.StartupDelaySeconds,
	}
}
