package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads an EngineConfig from a YAML file at path, applying
// defaults for any field the file leaves zero-valued.
func Load(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

// Validate checks an EngineConfig for internally-consistent values.
func Validate(cfg EngineConfig) error {
	switch cfg.Suite {
	case SuiteXX25519AESGCMSHA256, SuiteXXP256AES128GCMSHA256:
	default:
		return fmt.Errorf("config: unknown cipher suite %q", cfg.Suite)
	}
	if cfg.HandshakeTimeout <= 0 {
		return fmt.Errorf("config: handshake_timeout must be positive, got %s", cfg.HandshakeTimeout)
	}
	return nil
}

// MustLoad loads configuration or panics on error, for main()-style
// callers that cannot proceed without it.
func MustLoad(path string) EngineConfig {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load %s: %v", path, err))
	}
	return cfg
}
