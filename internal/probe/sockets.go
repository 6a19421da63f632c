// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package probe

import (
	"context"

	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
	gopsnet "github.com/shirou/gopsutil/v4/net"
)

// SocketsProbe reports activity from the host's own TCP table: active iff
// any established connection touches one of the monitored ports. It
// catches direct-connect clients that the panel inventory cannot see.
type SocketsProbe struct {
	ports map[uint32]struct{}
}

// NewSocketsProbe creates a SocketsProbe for the given port set.
func NewSocketsProbe(ports []uint32) (*SocketsProbe, error) {
	if len(ports) == 0 {
		return nil, iwerr.New(iwerr.CodeConfigValidateInvalidValue, "sockets probe: at least one monitored port is required")
	}

	set := make(map[uint32]struct{}, len(ports))
	for _, port := range ports {
		if port == 0 || port > 65535 {
			return nil, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue, "sockets probe: invalid port %d", port)
		}
		set[port] = struct{}{}
	}
	return &SocketsProbe{ports: set}, nil
}

func (p *SocketsProbe) Name() string { return "sockets" }

// Evaluate scans established TCP connections for the monitored ports.
// Both endpoints are checked, matching connections whichever side the
// game server binds.
func (p *SocketsProbe) Evaluate(ctx context.Context) Signal {
	conns, err := gopsnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return Failed(p.Name(), iwerr.Wrapf(err, iwerr.CodeProbeSocketsQueryFailure, "listing tcp connections"))
	}

	for _, conn := range conns {
		if conn.Status != "ESTABLISHED" {
			continue
		}
		if _, ok := p.ports[conn.Laddr.Port]; ok {
			return Observed(p.Name(), true)
		}
		if _, ok := p.ports[conn.Raddr.Port]; ok {
			return Observed(p.Name(), true)
		}
	}
	return Observed(p.Name(), false)
}
