// Probe demo - HTTP service for teaching Kubernetes probes and peer discovery
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/supporttools/kube-probe-demo/pkg/discovery"
	"github.com/supporttools/kube-probe-demo/pkg/logger"
	"github.com/supporttools/kube-probe-demo/pkg/metrics"
	"github.com/supporttools/kube-probe-demo/pkg/probe"
	"github.com/supporttools/kube-probe-demo/pkg/server"
	"github.com/supporttools/kube-probe-demo/pkg/types"
	"github.com/supporttools/kube-probe-demo/pkg/util"
)

// Build-time variables set by goreleaser or make
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Command-line flags
var (
	configPath = flag.String("config", "", "Path to optional YAML configuration file")
	port       = flag.Int("port", 0, "Override HTTP listen port")
	logLevel   = flag.String("log-level", "", "Override log level (debug, info, warn, error, fatal)")
	logFormat  = flag.String("log-format", "", "Override log format (json, text)")
	kubeconfig = flag.String("kubeconfig", "", "Override kubeconfig path for API-based peer discovery")
	version    = flag.Bool("version", false, "Show version information and exit")
)

func main() {
	flag.Parse()

	if *version {
		printVersion()
		os.Exit(0)
	}

	config, err := util.LoadConfigOrDefault(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flags win over file and environment
	if *port != 0 {
		config.Port = *port
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}
	if *logFormat != "" {
		config.LogFormat = *logFormat
	}
	if *kubeconfig != "" {
		config.Kubeconfig = *kubeconfig
	}
	if err := config.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Initialize(config.LogLevel, config.LogFormat); err != nil {
		logger.Fatalf("Failed to initialize logging: %v", err)
	}

	logger.Infof("Probe demo %s starting (pod=%s namespace=%s node=%s)",
		Version, config.PodName, config.Namespace, config.NodeName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := metrics.New("probe_demo")
	if err != nil {
		logger.Fatalf("Failed to create metrics: %v", err)
	}

	state := probe.NewState(config.StartupDelay())

	discoverer, err := buildDiscoverer(config, m)
	if err != nil {
		logger.Fatalf("Failed to create peer discovery: %v", err)
	}
	if err := discoverer.Start(ctx); err != nil {
		logger.Fatalf("Failed to start peer discovery: %v", err)
	}
	defer discoverer.Stop()

	srv, err := server.New(config, state, discoverer, m)
	if err != nil {
		logger.Fatalf("Failed to create server: %v", err)
	}
	if err := srv.Start(ctx); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}

	logger.Infof("Probe demo started successfully on %s", config.ListenAddr())

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	logger.Infof("Received signal %v, initiating graceful shutdown", sig)

	cancel()
	if err := srv.Stop(); err != nil {
		logger.WithError(err).Warn("Shutdown did not complete cleanly")
	}
	logger.Info("Probe demo stopped")
}

// buildDiscoverer assembles the strategy chain: the Kubernetes API first for
// rich records, headless-Service DNS as the zero-configuration fallback.
// When no API client can be built (no RBAC, not in a cluster) the service
// runs with DNS discovery alone, matching the fallback contract.
func buildDiscoverer(config *types.Config, m *metrics.Metrics) (*discovery.Discoverer, error) {
	strategies := make([]discovery.Strategy, 0, 2)

	apiStrategy, err := discovery.NewKubernetesStrategy(
		config.Kubeconfig, config.Namespace, config.LabelSelector, types.DefaultAPITimeout)
	if err != nil {
		logger.WithError(err).Warn("Kubernetes client not available - API peer discovery disabled")
	} else {
		logger.Info("Kubernetes client configured - API peer discovery enabled")
		strategies = append(strategies, apiStrategy)
	}

	strategies = append(strategies, discovery.NewDNSStrategy(config.HeadlessDNSName()))

	return discovery.NewDiscoverer(&discovery.Config{
		Strategies: strategies,
		Timeout:    types.DefaultDiscoveryTimeout,
		Metrics:    m,
	})
}

func printVersion() {
	fmt.Printf("probe-demo %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
