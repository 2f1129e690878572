// Package config provides configuration management for the handshake
// engine: cipher suite selection, timeouts, and trust-policy knobs,
// loadable from YAML or environment variables.
package config

import "time"

// EngineConfig is the full set of knobs a deployed channel needs.
type EngineConfig struct {
	Suite             string        `yaml:"suite" json:"suite"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout" json:"handshake_timeout"`
	ExpectCredentials bool          `yaml:"expect_credentials" json:"expect_credentials"`
	MetricsNamespace  string        `yaml:"metrics_namespace" json:"metrics_namespace"`
	Logging           LoggingConfig `yaml:"logging" json:"logging"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, text
	Output string `yaml:"output" json:"output"` // stdout, stderr, file path
}

const (
	SuiteXX25519AESGCMSHA256  = "XX_25519_AESGCM_SHA256"
	SuiteXXP256AES128GCMSHA256 = "XX_P256_AES128GCM_SHA256"
)

// DefaultEngineConfig returns the engine's zero-config defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Suite:             SuiteXX25519AESGCMSHA256,
		HandshakeTimeout:  10 * time.Second,
		ExpectCredentials: false,
		MetricsNamespace:  "xxcore",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}
