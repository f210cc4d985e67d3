// Package util provides configuration loading helpers.
package util

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/supporttools/kube-probe-demo/pkg/types"
)

// LoadConfig builds the runtime configuration with the usual precedence:
// defaults, then the optional YAML file, then environment variables. The
// result is validated before being returned.
func LoadConfig(path string) (*types.Config, error) {
	config := types.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Expand ${VAR} references before parsing so env vars work in
		// non-string fields (e.g. port: ${PORT})
		data = []byte(os.ExpandEnv(string(data)))

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.ApplyEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads configuration from a file, or skips the file
// layer entirely when it does not exist.
func LoadConfigOrDefault(path string) (*types.Config, error) {
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	return LoadConfig(path)
}
