package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/minhpq/funnel/internal/core/domain"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = "memory"
	}

	for i := range cfg.Feeds {
		if cfg.Feeds[i].Mapper == "" {
			cfg.Feeds[i].Mapper = string(domain.MapperLines)
		}
		if cfg.Feeds[i].OnError == "" {
			cfg.Feeds[i].OnError = string(domain.PolicyAbort)
		}
		if cfg.Feeds[i].Sink == "" {
			cfg.Feeds[i].Sink = string(domain.SinkStdout)
		}
	}

	return &cfg, nil
}
