// Package types defines configuration types for the probe demo service.
package types

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Package-level defaults
const (
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
	DefaultBindAddress         = "0.0.0.0"
	DefaultHTTPPort            = 8000
	DefaultStartupDelaySeconds = 5
	DefaultPodName             = "unknown-pod"
	DefaultNamespace           = "default"
	DefaultNodeName            = "unknown-node"
	DefaultVersion             = "1.0.0"
	DefaultHeadlessService     = "demo-headless"
	DefaultServiceName         = "demo-service"
	DefaultLabelSelector       = "app=demo"
	DefaultAPITimeout          = 2 * time.Second
	DefaultDiscoveryTimeout    = 3 * time.Second
)

// Valid log levels and formats for validation
var (
	validLogLevels = map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	validLogFormats = map[string]bool{
		"json": true,
		"text": true,
	}
)

// Config holds the full runtime configuration. It is read once at process
// start; none of the fields change afterwards.
type Config struct {
	// BindAddress is the address the HTTP server listens on.
	BindAddress string `yaml:"bindAddress"`

	// Port is the HTTP listen port.
	Port int `yaml:"port"`

	// StartupDelaySeconds is how long after process start the readiness
	// probe keeps reporting not-ready, simulating a slow warm-up.
	StartupDelaySeconds int `yaml:"startupDelaySeconds"`

	// PodName identifies this instance (downward API HOSTNAME).
	PodName string `yaml:"podName"`

	// Namespace is the Kubernetes namespace this instance runs in.
	Namespace string `yaml:"namespace"`

	// NodeName is the node this instance is scheduled on.
	NodeName string `yaml:"nodeName"`

	// Version is the advertised application version string.
	Version string `yaml:"version"`

	// HeadlessService is the headless Service name used for DNS-based
	// peer discovery (<HeadlessService>.<Namespace>.svc.cluster.local).
	HeadlessService string `yaml:"headlessService"`

	// ServiceName is the regular Service name shown in operator hints.
	ServiceName string `yaml:"serviceName"`

	// LabelSelector selects sibling pods for API-based peer discovery.
	LabelSelector string `yaml:"labelSelector"`

	// Kubeconfig is an optional kubeconfig path for out-of-cluster runs.
	Kubeconfig string `yaml:"kubeconfig"`

	// LogLevel is one of debug, info, warn, error, fatal.
	LogLevel string `yaml:"logLevel"`

	// LogFormat is json or text.
	LogFormat string `yaml:"logFormat"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		BindAddress:         DefaultBindAddress,
		Port:                DefaultHTTPPort,
		StartupDelaySeconds: DefaultStartupDelaySeconds,
		PodName:             DefaultPodName,
		Namespace:           DefaultNamespace,
		NodeName:            DefaultNodeName,
		Version:             DefaultVersion,
		HeadlessService:     DefaultHeadlessService,
		ServiceName:         DefaultServiceName,
		LabelSelector:       DefaultLabelSelector,
		LogLevel:            DefaultLogLevel,
		LogFormat:           DefaultLogFormat,
	}
}

// ApplyEnvironment overlays downward-API and demo environment variables onto
// the config. Unset variables leave the existing value untouched.
func (c *Config) ApplyEnvironment() error {
	if v := os.Getenv("STARTUP_DELAY"); v != "" {
		delay, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STARTUP_DELAY %q: %w", v, err)
		}
		c.StartupDelaySeconds = delay
	}
	if v := os.Getenv("HOSTNAME"); v != "" {
		c.PodName = v
	}
	if v := os.Getenv("POD_NAMESPACE"); v != "" {
		c.Namespace = v
	}
	if v := os.Getenv("NODE_NAME"); v != "" {
		c.NodeName = v
	}
	if v := os.Getenv("APP_VERSION"); v != "" {
		c.Version = v
	}
	if v := os.Getenv("HEADLESS_SVC"); v != "" {
		c.HeadlessService = v
	}
	if v := os.Getenv("SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("LABEL_SELECTOR"); v != "" {
		c.LabelSelector = v
	}
	return nil
}

// Validate checks the configuration for values that would misbehave at
// runtime. It normalizes log settings to lowercase first.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 1-65535", c.Port)
	}
	if c.StartupDelaySeconds < 0 {
		return fmt.Errorf("invalid startupDelaySeconds %d: must be >= 0", c.StartupDelaySeconds)
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level %q: must be debug, info, warn, error, or fatal", c.LogLevel)
	}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("invalid log format %q: must be json or text", c.LogFormat)
	}
	if c.HeadlessService == "" {
		return fmt.Errorf("headlessService cannot be empty")
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace cannot be empty")
	}
	return nil
}

// StartupDelay returns the readiness gate duration.
func (c *Config) StartupDelay() time.Duration {
	return time.Duration(c.StartupDelaySeconds) * time.Second
}

// HeadlessDNSName composes the cluster DNS name resolved by the DNS
// discovery strategy.
func (c *Config) HeadlessDNSName() string {
	return fmt.Sprintf("%s.%s.svc.cluster.local", c.HeadlessService, c.Namespace)
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}
