// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
)

// PanelConfig holds endpoint and credential for the panel inventory probe.
type PanelConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // optional, defaults to 10s
}

// PanelProbe reports activity from a Pterodactyl-style panel: the host is
// considered in use while at least one managed server reports a running
// state. This is the mandatory probe — it is the only one that sees
// workloads regardless of which ports they use.
type PanelProbe struct {
	cfg    PanelConfig
	client *http.Client
}

// NewPanelProbe creates a PanelProbe. Returns an error if the endpoint or
// credential is missing.
func NewPanelProbe(cfg PanelConfig) (*PanelProbe, error) {
	if cfg.BaseURL == "" {
		return nil, iwerr.New(iwerr.CodeConfigValidateInvalidValue, "panel probe: base URL must not be empty")
	}
	if cfg.APIKey == "" {
		return nil, iwerr.New(iwerr.CodeConfigValidateInvalidValue, "panel probe: API key must not be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &PanelProbe{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

func (p *PanelProbe) Name() string { return "panel" }

// serverList mirrors the panel application API list response; only the
// fields the verdict needs are decoded.
type serverList struct {
	Data []struct {
		Attributes struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"attributes"`
	} `json:"data"`
}

// Evaluate lists all managed servers and reports active iff any of them
// is running.
func (p *PanelProbe) Evaluate(ctx context.Context) Signal {
	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/api/application/servers"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Failed(p.Name(), iwerr.Wrapf(err, iwerr.CodeProbeEvaluateFailure, "building panel request"))
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Failed(p.Name(), iwerr.Wrapf(err, iwerr.CodeProbeEvaluateTimeout, "panel did not respond in time"))
		}
		return Failed(p.Name(), iwerr.Wrapf(err, iwerr.CodeProbePanelUpstreamFailure, "requesting server list"))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Failed(p.Name(), iwerr.Errorf(iwerr.CodeProbePanelAuthDenied, "panel rejected API key (status %d)", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return Failed(p.Name(), iwerr.Errorf(iwerr.CodeProbePanelUpstreamFailure, "panel returned status %d", resp.StatusCode))
	}

	var list serverList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return Failed(p.Name(), iwerr.Wrapf(err, iwerr.CodeProbePanelResponseInvalid, "decoding server list"))
	}

	for _, srv := range list.Data {
		if srv.Attributes.Status == "running" {
			return Observed(p.Name(), true)
		}
	}
	return Observed(p.Name(), false)
}
