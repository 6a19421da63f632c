// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idlewatch-dev/idlewatch/internal/server"
	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show monitor status",
		Long:  "Query the running monitor's status endpoint and display the inactivity timer state.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:18790", "monitor address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	mc := newMonitorClient(addr)
	var body server.StatusBody
	if err := mc.getJSON("/api/v1/status", &body); err != nil {
		if iwerr.HasCode(err, iwerr.CodeCLIMonitorNotRunning) {
			_, _ = fmt.Fprintf(out, "Monitor at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Monitor at %s: %s\n", addr, err)
		return nil
	}

	switch body.State {
	case "counting":
		_, _ = fmt.Fprintf(out, "Monitor at %s: inactive for %ds of %ds (round %d)\n",
			addr, body.ElapsedSeconds, body.ThresholdSeconds, body.Round)
	default:
		_, _ = fmt.Fprintf(out, "Monitor at %s: active (round %d)\n", addr, body.Round)
	}

	if body.Degraded {
		_, _ = fmt.Fprintln(out, "Warning: one or more probes failed in the last round")
	}
	if body.LastShutdown != nil {
		_, _ = fmt.Fprintf(out, "Last shutdown attempt: %s at %s\n",
			body.LastShutdown.Outcome, body.LastShutdown.TriggeredAt)
	}

	return nil
}
