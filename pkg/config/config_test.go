package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/privata-ai/privata-oss/pkg/detect"
	"github.com/privata-ai/privata-oss/pkg/policy"
)

const sampleYAML = `
logging:
  level: debug
telemetry:
  enabled: true
  endpoint: localhost:4317
  insecure: true
session:
  ttl: 15m
  sweep_interval: 1m
tenants:
  acme:
    categories:
      SSN: block
      EMAIL: warn
      COMPANY_NAME: allow
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "privata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ParsesYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.Logging.Level)
	require.True(t, cfg.Telemetry.Enabled)
	require.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	require.Equal(t, 15*time.Minute, cfg.Session.TTL.Std())

	rules := cfg.CategoryRules("acme")
	require.Equal(t, policy.RuleBlock, rules[detect.CategorySSN])
	require.Equal(t, policy.RuleWarn, rules[detect.CategoryEmail])
	require.Equal(t, policy.RuleAllow, rules[detect.CategoryCompanyName])
}

func TestLoad_RejectsUnknownRuleAction(t *testing.T) {
	path := writeConfig(t, `
tenants:
  acme:
    categories:
      SSN: escalate
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "unknown action")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestCategoryRules_UnknownTenantIsNil(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Nil(t, cfg.CategoryRules("globex"))
}

func TestFileProvider_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	provider, err := NewFileProvider(path, zerolog.Nop())
	require.NoError(t, err)
	defer provider.Close()

	updates := provider.Subscribe()
	first := <-updates
	require.Equal(t, "debug", first.Logging.Level)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600))

	select {
	case next := <-updates:
		require.Equal(t, "warn", next.Logging.Level)
		require.Equal(t, "warn", provider.Current().Logging.Level)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestFileProvider_KeepsPreviousOnBadReload(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	provider, err := NewFileProvider(path, zerolog.Nop())
	require.NoError(t, err)
	defer provider.Close()

	require.NoError(t, os.WriteFile(path, []byte("tenants:\n  acme:\n    categories:\n      SSN: nope\n"), 0o600))

	// The invalid file must never displace the last good snapshot.
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, "debug", provider.Current().Logging.Level)
}
