package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSweepConfig reads a full sweep configuration from a YAML file.
// The grid is a sequence of {name, values} entries, so the trial
// enumeration order follows the file. Defaults are not applied and the
// config is not validated; callers decide both.
func LoadSweepConfig(path string) (*SweepConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sweep config: %w", err)
	}

	var cfg SweepConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sweep config: %w", err)
	}

	return &cfg, nil
}
