package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourcesConfig selects the upstream sources and the privileged callers.
// Empty lists mean every known exchange or forex source.
type SourcesConfig struct {
	Exchanges  []string `yaml:"exchanges"`
	Forex      []string `yaml:"forex"`
	Privileged []string `yaml:"privileged"`
}

// LoadSources reads a YAML sources file such as:
//
//	exchanges: [binance, coinbase, kucoin]
//	forex: [ecb, bankofcanada]
//	privileged: [rrkah-fqaaa-aaaaa-aaaaq-cai]
func LoadSources(path string) (*SourcesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	var sources SourcesConfig
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}
	return &sources, nil
}
