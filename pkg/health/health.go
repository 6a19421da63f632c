// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package health

import "time"

// Metrics exposes the current health state of an activity probe for
// monitoring and operator visibility. All fields are point-in-time
// snapshots safe to serialize to JSON.
type Metrics struct {
	ConsecutiveFailures     int64      `json:"consecutive_failures"`
	ConsecutiveAuthFailures int64      `json:"consecutive_auth_failures"`
	LastFailureAt           *time.Time `json:"last_failure_at,omitempty"`
	Healthy                 bool       `json:"healthy"`
}
