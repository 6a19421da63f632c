// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package probe

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/dreamscached/minequery/v2"
	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
)

// GameQueryConfig holds the target for the game-query probe.
type GameQueryConfig struct {
	Target  string // host:port of the Minecraft server
	Timeout time.Duration
}

// GameQueryProbe asks one game server directly for its player count via
// the server list ping protocol: active iff anyone is online. Unlike the
// panel probe it distinguishes "server up but empty" from "server in use".
type GameQueryProbe struct {
	host   string
	port   int
	pinger *minequery.Pinger
}

// NewGameQueryProbe creates a GameQueryProbe for the given host:port target.
func NewGameQueryProbe(cfg GameQueryConfig) (*GameQueryProbe, error) {
	host, portStr, err := net.SplitHostPort(cfg.Target)
	if err != nil {
		return nil, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue, "game query probe: target must be host:port, got %q: %w", cfg.Target, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue, "game query probe: invalid port %q", portStr)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &GameQueryProbe{
		host:   host,
		port:   port,
		pinger: minequery.NewPinger(minequery.WithTimeout(cfg.Timeout)),
	}, nil
}

func (p *GameQueryProbe) Name() string { return "gamequery" }

// Evaluate pings the server and reports active iff OnlinePlayers > 0.
// The pinger's own timeout bounds the call; ctx cancellation is checked
// before dialing since the protocol library is not context-aware.
func (p *GameQueryProbe) Evaluate(ctx context.Context) Signal {
	if err := ctx.Err(); err != nil {
		return Failed(p.Name(), iwerr.Wrapf(err, iwerr.CodeProbeEvaluateTimeout, "round cancelled before game query"))
	}

	status, err := p.pinger.Ping17(p.host, p.port)
	if err != nil {
		return Failed(p.Name(), iwerr.Wrapf(err, iwerr.CodeProbeGameQueryFailure, "pinging %s:%d", p.host, p.port))
	}

	return Observed(p.Name(), status.OnlinePlayers > 0)
}
