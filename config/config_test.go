package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
suite: XX_P256_AES128GCM_SHA256
handshake_timeout: 5s
expect_credentials: true
metrics_namespace: test_ns
logging:
  level: debug
  format: text
  output: stderr
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, SuiteXXP256AES128GCMSHA256, cfg.Suite)
	require.Equal(t, true, cfg.ExpectCredentials)
	require.Equal(t, "test_ns", cfg.MetricsNamespace)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsUnknownSuite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suite: NOT_A_SUITE\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestFromEnvDefaultsAndOverrides(t *testing.T) {
	t.Setenv("XXCORE_SUITE", SuiteXXP256AES128GCMSHA256)
	t.Setenv("XXCORE_HANDSHAKE_TIMEOUT", "2500ms")
	t.Setenv("XXCORE_EXPECT_CREDENTIALS", "true")

	cfg, err := FromEnv("")
	require.NoError(t, err)
	require.Equal(t, SuiteXXP256AES128GCMSHA256, cfg.Suite)
	require.Equal(t, true, cfg.ExpectCredentials)
}

func TestFromEnvInvalidDuration(t *testing.T) {
	t.Setenv("XXCORE_HANDSHAKE_TIMEOUT", "not-a-duration")
	_, err := FromEnv("")
	require.Error(t, err)
}
