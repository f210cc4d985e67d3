package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/supporttools/kube-probe-demo/pkg/logger"
)

// stressDuration is how long /stress burns CPU. Long enough to show up in
// kubectl top, short enough not to trip the write timeout.
const stressDuration = 2 * time.Second

// handleHealthz answers the liveness probe. A 503 here tells Kubernetes to
// restart the container once failureThreshold is reached.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ok, detail := s.state.CheckLiveness()
	if s.metrics != nil {
		s.metrics.RecordProbe("liveness", ok)
	}

	v := s.baseView(r)
	v.OK = ok
	v.Detail = detail
	if ok {
		v.Status = "HEALTHY"
		render(w, http.StatusOK, "liveness", v)
		return
	}
	v.Status = "UNHEALTHY"
	render(w, http.StatusServiceUnavailable, "liveness", v)
}

// handleReady answers the readiness probe. A 503 removes this pod from the
// Service endpoints without restarting it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ok, detail := s.state.CheckReadiness()
	if s.metrics != nil {
		s.metrics.RecordProbe("readiness", ok)
	}

	v := s.baseView(r)
	v.OK = ok
	v.Detail = detail
	if ok {
		v.Status = "READY"
		render(w, http.StatusOK, "readiness", v)
		return
	}
	v.Status = "NOT READY"
	render(w, http.StatusServiceUnavailable, "readiness", v)
}

// handleStartup answers the startup probe. While this fails, Kubernetes
// suppresses the liveness and readiness probes; once it passes it never
// fails again.
func (s *Server) handleStartup(w http.ResponseWriter, r *http.Request) {
	ok, detail := s.state.CheckStartup()
	if s.metrics != nil {
		s.metrics.RecordProbe("startup", ok)
		if ok {
			s.metrics.ProbeStarted.Set(1)
		}
	}

	v := s.baseView(r)
	v.OK = ok
	v.Detail = detail
	if ok {
		v.Status = "STARTED"
		render(w, http.StatusOK, "startup", v)
		return
	}
	v.Status = "STARTING"
	render(w, http.StatusServiceUnavailable, "startup", v)
}

// handleIndex renders the landing page with the peer table.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	v := s.baseView(r)
	v.Peers = s.discoverer.Peers(r.Context())
	render(w, http.StatusOK, "index", v)
}

// handleInfo renders instance metadata, the peer table, and the masked
// environment dump.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	v := s.baseView(r)
	v.Peers = s.discoverer.Peers(r.Context())
	v.Env = environmentRows()
	v.Healthy = s.state.Healthy()
	v.Ready = s.state.Ready()
	v.Timestamp = time.Now().UTC().Format(time.RFC3339)
	render(w, http.StatusOK, "info", v)
}

// handleToggleHealth flips the liveness flag. Only this replica is affected;
// every replica holds independent state.
func (s *Server) handleToggleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := s.state.ToggleHealthy()
	if s.metrics != nil {
		s.metrics.RecordToggle("healthy", healthy)
	}
	logger.WithFields(logrus.Fields{
		"healthy": healthy,
	}).Info("Liveness flag toggled")

	v := s.baseView(r)
	v.Healthy = healthy
	if healthy {
		v.Status = "HEALTHY"
	} else {
		v.Status = "UNHEALTHY"
	}
	render(w, http.StatusOK, "toggle-health", v)
}

// handleToggleReady flips the readiness flag. The startup-delay gate still
// applies: within the delay the probe reports not-ready regardless.
func (s *Server) handleToggleReady(w http.ResponseWriter, r *http.Request) {
	ready := s.state.ToggleReady()
	if s.metrics != nil {
		s.metrics.RecordToggle("ready", ready)
	}
	logger.WithFields(logrus.Fields{
		"ready": ready,
	}).Info("Readiness flag toggled")

	v := s.baseView(r)
	v.Ready = ready
	if ready {
		v.Status = "READY"
	} else {
		v.Status = "NOT READY"
	}
	render(w, http.StatusOK, "toggle-ready", v)
}

// handleStress burns CPU for a fixed window, then reports the measured
// duration. Useful with kubectl top and HPA demos.
func (s *Server) handleStress(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sink := 0
	for time.Since(start) < stressDuration {
		for i := 0; i < 1000; i++ {
			sink += i * i
		}
	}
	elapsed := time.Since(start)
	_ = sink

	logger.WithField("duration", elapsed.String()).Debug("Stress run complete")

	v := s.baseView(r)
	v.Duration = fmt.Sprintf("%.2fs", elapsed.Seconds())
	render(w, http.StatusOK, "stress", v)
}
