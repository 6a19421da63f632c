// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
)

// defaultHTTPClient is the package-level HTTP client used by monitor
// commands. Overridden in tests via httptest.
var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// monitorClient provides HTTP access to a running idlewatch monitor.
type monitorClient struct {
	baseURL string
	http    *http.Client
}

// newMonitorClient creates a client targeting the given host:port address.
func newMonitorClient(addr string) *monitorClient {
	return &monitorClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
func (c *monitorClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		if isDialError(err) {
			return iwerr.Wrapf(err, iwerr.CodeCLIMonitorNotRunning, "monitor is not running")
		}
		return iwerr.Wrapf(err, iwerr.CodeCLIRequestFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return iwerr.Errorf(iwerr.CodeCLIRequestFailure, "monitor returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return iwerr.Wrapf(err, iwerr.CodeCLIResponseInvalid, "invalid response")
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection
// refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
