// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package config_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/idlewatch-dev/idlewatch/internal/config"
	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
)

// noKeyring makes credential resolution behave as if the keyring holds
// nothing, so validation exercises the missing-key path deterministically.
func noKeyring(t *testing.T) {
	t.Helper()
	restore := config.SetKeyringGetForTest(func(_, _ string) (string, error) {
		return "", keyring.ErrNotFound
	})
	t.Cleanup(restore)
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idlewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

const validYAML = `
panel:
  base_url: "https://panel.example.com"
  api_key: "ptla_secret"
engine:
  inactivity_timeout_seconds: 300
  check_interval_seconds: 60
probes:
  enabled: [panel]
`

func TestLoad_ValidConfig(t *testing.T) {
	noKeyring(t)

	cfg, err := config.Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://panel.example.com", cfg.Panel.BaseURL)
	assert.Equal(t, "ptla_secret", cfg.Panel.APIKey)
	assert.Equal(t, 300, cfg.Engine.InactivityTimeoutSeconds)
	assert.Equal(t, 60, cfg.Engine.CheckIntervalSeconds)
	assert.Equal(t, "countdown", cfg.Engine.OnDegraded)
	assert.Equal(t, []string{config.ProbePanel}, cfg.Probes.Enabled)
	assert.Equal(t, "shutdown -h now", cfg.Shutdown.Command)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "127.0.0.1:18790", cfg.Server.Listen)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	noKeyring(t)

	cfg, err := config.Load(writeConfig(t, `
panel:
  base_url: "http://panel.local:8080"
  api_key: "k"
`))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Panel.TimeoutSeconds)
	assert.Equal(t, 300, cfg.Engine.InactivityTimeoutSeconds)
	assert.Equal(t, 60, cfg.Engine.CheckIntervalSeconds)
	assert.Equal(t, 10, cfg.Probes.TimeoutSeconds)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := config.Load("/nonexistent/idlewatch.yaml")
	require.Error(t, err)
	assert.True(t, iwerr.HasCode(err, iwerr.CodeConfigLoadReadFailure))
}

func TestLoad_APIKeyFromKeyring(t *testing.T) {
	restore := config.SetKeyringGetForTest(func(service, key string) (string, error) {
		assert.Equal(t, config.KeyringService, service)
		assert.Equal(t, config.KeyringAPIKey, key)
		return "ring_secret", nil
	})
	t.Cleanup(restore)

	cfg, err := config.Load(writeConfig(t, `
panel:
  base_url: "https://panel.example.com"
`))
	require.NoError(t, err)
	assert.Equal(t, "ring_secret", cfg.Panel.APIKey)
}

func TestLoad_ExplicitKeyBeatsKeyring(t *testing.T) {
	restore := config.SetKeyringGetForTest(func(_, _ string) (string, error) {
		t.Fatal("keyring must not be consulted when the key is configured")
		return "", nil
	})
	t.Cleanup(restore)

	cfg, err := config.Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "ptla_secret", cfg.Panel.APIKey)
}

func TestLoad_KeyringLookupFailureIsFatal(t *testing.T) {
	restore := config.SetKeyringGetForTest(func(_, _ string) (string, error) {
		return "", errors.New("dbus: no session bus")
	})
	t.Cleanup(restore)

	_, err := config.Load(writeConfig(t, `
panel:
  base_url: "https://panel.example.com"
`))
	require.Error(t, err)
	assert.True(t, iwerr.HasCode(err, iwerr.CodeConfigCredentialLookupFailure))
}

func TestLoad_EnvOverride(t *testing.T) {
	noKeyring(t)
	t.Setenv("IDLEWATCH_ENGINE_CHECK_INTERVAL_SECONDS", "15")

	cfg, err := config.Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Engine.CheckIntervalSeconds)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{}

	errs := cfg.Validate()
	require.NotEmpty(t, errs)
	// Empty config is wrong in several independent ways; every one must
	// be reported, not just the first.
	assert.GreaterOrEqual(t, len(errs), 5)
}

func TestValidate_Matrix(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Panel: config.PanelConfig{
				BaseURL:        "https://panel.example.com",
				APIKey:         "k",
				TimeoutSeconds: 10,
			},
			Engine: config.EngineConfig{
				InactivityTimeoutSeconds: 300,
				CheckIntervalSeconds:     60,
				OnDegraded:               "countdown",
			},
			Probes: config.ProbesConfig{
				Enabled:        []string{config.ProbePanel},
				TimeoutSeconds: 10,
			},
			Shutdown: config.ShutdownConfig{Command: "shutdown -h now"},
			Server:   config.ServerConfig{Enabled: true, Listen: "127.0.0.1:18790"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"bad base url", func(c *config.Config) { c.Panel.BaseURL = "panel.example.com" }, "panel.base_url"},
		{"missing api key", func(c *config.Config) { c.Panel.APIKey = "" }, "panel.api_key"},
		{"zero threshold", func(c *config.Config) { c.Engine.InactivityTimeoutSeconds = 0 }, "inactivity_timeout_seconds"},
		{"negative interval", func(c *config.Config) { c.Engine.CheckIntervalSeconds = -1 }, "check_interval_seconds"},
		{"unknown policy", func(c *config.Config) { c.Engine.OnDegraded = "sometimes" }, "on_degraded"},
		{"zero probes", func(c *config.Config) { c.Probes.Enabled = nil }, "at least one probe"},
		{"panel probe missing", func(c *config.Config) { c.Probes.Enabled = []string{config.ProbeSockets}; c.Probes.MonitoredPorts = []uint32{25565} }, "panel probe is mandatory"},
		{"unknown probe", func(c *config.Config) { c.Probes.Enabled = append(c.Probes.Enabled, "telepathy") }, "unknown probe"},
		{"duplicate probe", func(c *config.Config) { c.Probes.Enabled = []string{config.ProbePanel, config.ProbePanel} }, "more than once"},
		{"sockets without ports", func(c *config.Config) { c.Probes.Enabled = append(c.Probes.Enabled, config.ProbeSockets) }, "monitored_ports"},
		{"invalid port", func(c *config.Config) {
			c.Probes.Enabled = append(c.Probes.Enabled, config.ProbeSockets)
			c.Probes.MonitoredPorts = []uint32{99999}
		}, "invalid port"},
		{"gamequery without target", func(c *config.Config) { c.Probes.Enabled = append(c.Probes.Enabled, config.ProbeGameQuery) }, "game_query_target"},
		{"gamequery bad target", func(c *config.Config) {
			c.Probes.Enabled = append(c.Probes.Enabled, config.ProbeGameQuery)
			c.Probes.GameQueryTarget = "mc.example.com"
		}, "host:port"},
		{"zero probe timeout", func(c *config.Config) { c.Probes.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"bad listen", func(c *config.Config) { c.Server.Listen = "localhost" }, "server.listen"},
		{"server disabled skips listen", func(c *config.Config) { c.Server.Enabled = false; c.Server.Listen = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}

			require.NotEmpty(t, errs)
			joined := errors.Join(errs...).Error()
			assert.Contains(t, joined, tt.wantErr)
		})
	}
}

func TestFromViper_InvalidConfigHasCode(t *testing.T) {
	noKeyring(t)

	v := viper.New()
	config.SetDefaults(v)
	v.Set("panel.base_url", "https://panel.example.com")
	v.Set("panel.api_key", "k")
	v.Set("engine.inactivity_timeout_seconds", 0)

	_, err := config.FromViper(v)
	require.Error(t, err)
	assert.True(t, iwerr.HasCode(err, iwerr.CodeConfigValidateInvalidValue))
}

func TestProbesConfig_Has(t *testing.T) {
	cfg := config.ProbesConfig{Enabled: []string{config.ProbePanel, config.ProbeSockets}}
	assert.True(t, cfg.Has(config.ProbePanel))
	assert.False(t, cfg.Has(config.ProbeGameQuery))
}

func TestBootstrapDefaultConfigParses(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(config.DefaultConfigYAML)))

	assert.Equal(t, "https://panel.example.com", v.GetString("panel.base_url"))
	assert.Equal(t, 300, v.GetInt("engine.inactivity_timeout_seconds"))
}
