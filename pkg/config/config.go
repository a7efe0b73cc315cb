// Package config loads gateway configuration from YAML and serves live
// reloads to subscribers.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/privata-ai/privata-oss/pkg/detect"
	"github.com/privata-ai/privata-oss/pkg/logging"
	"github.com/privata-ai/privata-oss/pkg/policy"
)

// Config is the full gateway configuration.
type Config struct {
	Logging   logging.Config          `yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig         `yaml:"telemetry" json:"telemetry"`
	Session   SessionConfig           `yaml:"session" json:"session"`
	Tenants   map[string]TenantConfig `yaml:"tenants" json:"tenants"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Insecure bool   `yaml:"insecure" json:"insecure"`
}

// SessionConfig controls the session store.
type SessionConfig struct {
	TTL           Duration `yaml:"ttl" json:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// Duration decodes Go duration strings ("15m") from YAML and JSON; bare
// integers are taken as nanoseconds, matching time.Duration.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) set(raw any) error {
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	case int64:
		*d = Duration(v)
	case float64:
		*d = Duration(v)
	default:
		return fmt.Errorf("config: invalid duration value %v", raw)
	}
	return nil
}

// TenantConfig holds one tenant's policy material.
type TenantConfig struct {
	// Categories maps detection categories to allow/warn/block directives.
	Categories map[string]string `yaml:"categories" json:"categories"`
	// RegoModules maps module names to Rego source for the optional
	// override engine.
	RegoModules map[string]string `yaml:"rego_modules" json:"rego_modules"`
}

var ruleActions = map[string]policy.RuleAction{
	"allow": policy.RuleAllow,
	"warn":  policy.RuleWarn,
	"block": policy.RuleBlock,
}

// Load reads and validates a config file. YAML is canonical; JSON is accepted
// as a fallback.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is operator-supplied at startup
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates raw config bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects directives the policy engine would not understand.
func (c *Config) Validate() error {
	for tenant, tc := range c.Tenants {
		for category, action := range tc.Categories {
			if _, ok := ruleActions[action]; !ok {
				return fmt.Errorf("config: tenant %s category %s: unknown action %q", tenant, category, action)
			}
		}
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("config: session ttl must not be negative")
	}
	if c.Session.SweepInterval < 0 {
		return fmt.Errorf("config: session sweep_interval must not be negative")
	}
	return nil
}

// CategoryRules returns the tenant's category policy, or nil when the tenant
// has none configured.
func (c *Config) CategoryRules(tenantID string) policy.CategoryPolicy {
	tc, ok := c.Tenants[tenantID]
	if !ok || len(tc.Categories) == 0 {
		return nil
	}
	rules := make(policy.CategoryPolicy, len(tc.Categories))
	for category, action := range tc.Categories {
		rules[detect.Category(category)] = ruleActions[action]
	}
	return rules
}
