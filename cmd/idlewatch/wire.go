// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package main

import (
	"github.com/idlewatch-dev/idlewatch/internal/config"
	"github.com/idlewatch-dev/idlewatch/internal/engine"
	"github.com/idlewatch-dev/idlewatch/internal/poweroff"
	"github.com/idlewatch-dev/idlewatch/internal/probe"
	"github.com/idlewatch-dev/idlewatch/internal/server"
	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
)

// Monitor holds all wired subsystems.
type Monitor struct {
	Engine *engine.Engine
	Server *server.Server // nil when the status server is disabled
}

// buildProbes constructs the enabled probes in configuration order.
func buildProbes(cfg *config.Config) ([]probe.Probe, error) {
	probes := make([]probe.Probe, 0, len(cfg.Probes.Enabled))

	for _, name := range cfg.Probes.Enabled {
		switch name {
		case config.ProbePanel:
			p, err := probe.NewPanelProbe(probe.PanelConfig{
				BaseURL: cfg.Panel.BaseURL,
				APIKey:  cfg.Panel.APIKey,
				Timeout: cfg.Panel.Timeout(),
			})
			if err != nil {
				return nil, err
			}
			probes = append(probes, p)
		case config.ProbeSockets:
			p, err := probe.NewSocketsProbe(cfg.Probes.MonitoredPorts)
			if err != nil {
				return nil, err
			}
			probes = append(probes, p)
		case config.ProbeGameQuery:
			p, err := probe.NewGameQueryProbe(probe.GameQueryConfig{
				Target:  cfg.Probes.GameQueryTarget,
				Timeout: cfg.Probes.Timeout(),
			})
			if err != nil {
				return nil, err
			}
			probes = append(probes, p)
		default:
			return nil, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue, "unknown probe %q", name)
		}
	}

	return probes, nil
}

// wireMonitor creates all subsystems and wires them together.
func wireMonitor(cfg *config.Config) (*Monitor, error) {
	probes, err := buildProbes(cfg)
	if err != nil {
		return nil, err
	}

	runner, err := probe.NewRunner(probes, cfg.Probes.Timeout())
	if err != nil {
		return nil, err
	}

	timer, err := engine.NewTimer(
		cfg.Engine.InactivityTimeout(),
		cfg.Engine.CheckInterval(),
		engine.DegradedPolicy(cfg.Engine.OnDegraded),
	)
	if err != nil {
		return nil, err
	}

	primitive, err := poweroff.NewExecRunner(cfg.Shutdown.Command)
	if err != nil {
		return nil, err
	}

	eng := engine.New(runner, timer, engine.NewTrigger(primitive))

	mon := &Monitor{Engine: eng}

	if cfg.Server.Enabled {
		srv, err := server.New(server.Config{ListenAddr: cfg.Server.Listen}, eng)
		if err != nil {
			return nil, iwerr.Wrapf(err, iwerr.CodeServerStartFailure, "creating status server")
		}
		mon.Server = srv
	}

	return mon, nil
}
