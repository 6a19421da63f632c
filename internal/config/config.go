// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package config

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"

	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
)

// Keyring coordinates for the panel credential when it is not supplied
// via config or environment.
const (
	KeyringService = "idlewatch"
	KeyringAPIKey  = "panel_api_key"
)

// ProbeNames recognised in probes.enabled, in canonical evaluation order.
const (
	ProbePanel     = "panel"
	ProbeSockets   = "sockets"
	ProbeGameQuery = "gamequery"
)

// keyringGet is swapped out in tests to avoid touching the OS keyring.
var keyringGet = keyring.Get

// Config is the top-level idlewatch configuration.
type Config struct {
	Panel    PanelConfig    `mapstructure:"panel"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Probes   ProbesConfig   `mapstructure:"probes"`
	Shutdown ShutdownConfig `mapstructure:"shutdown"`
	Server   ServerConfig   `mapstructure:"server"`
}

// PanelConfig holds the inventory panel endpoint and credential.
type PanelConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the panel request timeout as a duration.
func (c PanelConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EngineConfig holds the decision engine timing and policy knobs.
type EngineConfig struct {
	InactivityTimeoutSeconds int    `mapstructure:"inactivity_timeout_seconds"`
	CheckIntervalSeconds     int    `mapstructure:"check_interval_seconds"`
	OnDegraded               string `mapstructure:"on_degraded"`
}

// InactivityTimeout returns the shutdown threshold as a duration.
func (c EngineConfig) InactivityTimeout() time.Duration {
	return time.Duration(c.InactivityTimeoutSeconds) * time.Second
}

// CheckInterval returns the round interval as a duration.
func (c EngineConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// ProbesConfig selects which activity probes run and their parameters.
type ProbesConfig struct {
	Enabled         []string `mapstructure:"enabled"`
	MonitoredPorts  []uint32 `mapstructure:"monitored_ports"`
	GameQueryTarget string   `mapstructure:"game_query_target"`
	TimeoutSeconds  int      `mapstructure:"timeout_seconds"`
}

// Timeout returns the per-probe evaluation timeout as a duration.
func (c ProbesConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Has reports whether the named probe is enabled.
func (c ProbesConfig) Has(name string) bool {
	for _, p := range c.Enabled {
		if p == name {
			return true
		}
	}
	return false
}

// ShutdownConfig holds the host power-off command.
type ShutdownConfig struct {
	Command string `mapstructure:"command"`
}

// ServerConfig controls the read-only status HTTP server.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// SetDefaults installs all configuration defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("panel.timeout_seconds", 10)
	v.SetDefault("engine.inactivity_timeout_seconds", 300)
	v.SetDefault("engine.check_interval_seconds", 60)
	v.SetDefault("engine.on_degraded", "countdown")
	v.SetDefault("probes.enabled", []string{ProbePanel})
	v.SetDefault("probes.timeout_seconds", 10)
	v.SetDefault("shutdown.command", "shutdown -h now")
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.listen", "127.0.0.1:18790")
}

// SetupEnv binds environment variable overrides (prefix IDLEWATCH_,
// dots replaced by underscores).
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("IDLEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// FromViper unmarshals, resolves the panel credential, and validates.
// Any validation failure is fatal at startup — the engine refuses to
// enter its loop on a bad config.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if err := cfg.resolveCredential(); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, iwerr.Errorf(iwerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// resolveCredential fills panel.api_key from the OS keyring when it was
// not supplied directly. A missing keyring entry is not an error here;
// validation reports the absent credential with the full story.
func (c *Config) resolveCredential() error {
	if c.Panel.APIKey != "" {
		return nil
	}

	val, err := keyringGet(KeyringService, KeyringAPIKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return iwerr.Wrapf(err, iwerr.CodeConfigCredentialLookupFailure,
			"reading %s/%s from OS keyring", KeyringService, KeyringAPIKey)
	}

	c.Panel.APIKey = val
	return nil
}

// Validate checks the configuration for logical errors. It returns a
// slice of all validation errors found, collecting all issues rather
// than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validatePanel()...)
	errs = append(errs, c.validateEngine()...)
	errs = append(errs, c.validateProbes()...)
	errs = append(errs, c.validateServer()...)

	if c.Shutdown.Command != "" && len(strings.Fields(c.Shutdown.Command)) == 0 {
		errs = append(errs, iwerr.New(iwerr.CodeConfigValidateInvalidValue, "config: shutdown.command must not be blank"))
	}

	return errs
}

func (c *Config) validatePanel() []error {
	var errs []error

	if c.Panel.BaseURL == "" {
		errs = append(errs, iwerr.New(iwerr.CodeConfigValidateInvalidValue, "config: panel.base_url must not be empty"))
	} else {
		u, err := url.Parse(c.Panel.BaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue,
				"config: panel.base_url must be an http(s) URL, got %q", c.Panel.BaseURL))
		}
	}

	if c.Panel.APIKey == "" {
		errs = append(errs, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue,
			"config: panel.api_key must be set (directly, via IDLEWATCH_PANEL_API_KEY, or in the OS keyring as %s/%s)",
			KeyringService, KeyringAPIKey))
	}

	if c.Panel.TimeoutSeconds <= 0 {
		errs = append(errs, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue,
			"config: panel.timeout_seconds must be greater than 0, got %d", c.Panel.TimeoutSeconds))
	}

	return errs
}

func (c *Config) validateEngine() []error {
	var errs []error

	if c.Engine.InactivityTimeoutSeconds <= 0 {
		errs = append(errs, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue,
			"config: engine.inactivity_timeout_seconds must be greater than 0, got %d", c.Engine.InactivityTimeoutSeconds))
	}

	if c.Engine.CheckIntervalSeconds <= 0 {
		errs = append(errs, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue,
			"config: engine.check_interval_seconds must be greater than 0, got %d", c.Engine.CheckIntervalSeconds))
	}

	validPolicies := map[string]bool{"countdown": true, "freeze": true}
	if !validPolicies[c.Engine.OnDegraded] {
		errs = append(errs, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue,
			"config: engine.on_degraded must be one of [countdown, freeze], got %q", c.Engine.OnDegraded))
	}

	return errs
}

func (c *Config) validateProbes() []error {
	var errs []error

	if len(c.Probes.Enabled) == 0 {
		errs = append(errs, iwerr.New(iwerr.CodeConfigValidateInvalidValue,
			"config: probes.enabled must name at least one probe"))
		return errs
	}

	valid := map[string]bool{ProbePanel: true, ProbeSockets: true, ProbeGameQuery: true}
	seen := map[string]bool{}
	for _, name := range c.Probes.Enabled {
		if !valid[name] {
			errs = append(errs, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue,
				"config: probes.enabled contains unknown probe %q (valid: panel, sockets, gamequery)", name))
			continue
		}
		if seen[name] {
			errs = append(errs, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue,
				"config: probes.enabled lists %q more than once", name))
		}
		seen[name] = true
	}

	if !seen[ProbePanel] {
		errs = append(errs, iwerr.New(iwerr.CodeConfigValidateInvalidValue,
			"config: the panel probe is mandatory and must appear in probes.enabled"))
	}

	if seen[ProbeSockets] && len(c.Probes.MonitoredPorts) == 0 {
		errs = append(errs, iwerr.New(iwerr.CodeConfigValidateInvalidValue,
			"config: probes.monitored_ports is required when the sockets probe is enabled"))
	}
	for _, port := range c.Probes.MonitoredPorts {
		if port == 0 || port > 65535 {
			errs = append(errs, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue,
				"config: probes.monitored_ports contains invalid port %d", port))
		}
	}

	if seen[ProbeGameQuery] {
		if c.Probes.GameQueryTarget == "" {
			errs = append(errs, iwerr.New(iwerr.CodeConfigValidateInvalidValue,
				"config: probes.game_query_target is required when the gamequery probe is enabled"))
		} else if _, _, err := net.SplitHostPort(c.Probes.GameQueryTarget); err != nil {
			errs = append(errs, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue,
				"config: probes.game_query_target must be host:port, got %q", c.Probes.GameQueryTarget))
		}
	}

	if c.Probes.TimeoutSeconds <= 0 {
		errs = append(errs, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue,
			"config: probes.timeout_seconds must be greater than 0, got %d", c.Probes.TimeoutSeconds))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if !c.Server.Enabled {
		return errs
	}

	if c.Server.Listen == "" {
		errs = append(errs, iwerr.New(iwerr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
	} else if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		errs = append(errs, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err))
	}

	return errs
}
