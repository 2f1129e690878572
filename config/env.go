package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// FromEnv loads an EngineConfig from environment variables, optionally
// preloading a .env file first (godotenv.Load is a no-op if envFile
// does not exist).
//
// Recognized variables: XXCORE_SUITE, XXCORE_HANDSHAKE_TIMEOUT (a
// time.ParseDuration string), XXCORE_EXPECT_CREDENTIALS,
// XXCORE_METRICS_NAMESPACE, XXCORE_LOG_LEVEL, XXCORE_LOG_FORMAT,
// XXCORE_LOG_OUTPUT.
func FromEnv(envFile string) (EngineConfig, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	cfg := DefaultEngineConfig()

	if v := os.Getenv("XXCORE_SUITE"); v != "" {
		cfg.Suite = v
	}
	if v := os.Getenv("XXCORE_HANDSHAKE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return EngineConfig{}, fmt.Errorf("config: parse XXCORE_HANDSHAKE_TIMEOUT: %w", err)
		}
		cfg.HandshakeTimeout = d
	}
	if v := os.Getenv("XXCORE_EXPECT_CREDENTIALS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return EngineConfig{}, fmt.Errorf("config: parse XXCORE_EXPECT_CREDENTIALS: %w", err)
		}
		cfg.ExpectCredentials = b
	}
	if v := os.Getenv("XXCORE_METRICS_NAMESPACE"); v != "" {
		cfg.MetricsNamespace = v
	}
	if v := os.Getenv("XXCORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("XXCORE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("XXCORE_LOG_OUTPUT"); v != "" {
		cfg.Logging.Output = v
	}

	if err := Validate(cfg); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}
