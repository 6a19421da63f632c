// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlewatch-dev/idlewatch/internal/config"
	"github.com/idlewatch-dev/idlewatch/internal/probe"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run diagnostics",
		Long:  "Validate configuration and evaluate every enabled probe once, without starting the monitor loop.",
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	v := viper.GetViper()

	if _, err := fmt.Fprintf(w, "%-20s idlewatch %s (%s/%s)\n", "Binary:", version, runtime.GOOS, runtime.GOARCH); err != nil {
		return err
	}

	cfgFile := v.ConfigFileUsed()
	if cfgFile == "" {
		cfgFile = "(defaults and environment only)"
	}
	_, _ = fmt.Fprintf(w, "%-20s %s\n", "Config:", cfgFile)

	cfg, err := config.FromViper(v)
	if err != nil {
		_, _ = fmt.Fprintf(w, "%-20s invalid: %s\n", "Validation:", err)
		return err
	}
	_, _ = fmt.Fprintf(w, "%-20s ok (threshold %s, interval %s, on_degraded %s)\n",
		"Validation:", cfg.Engine.InactivityTimeout(), cfg.Engine.CheckInterval(), cfg.Engine.OnDegraded)

	probes, err := buildProbes(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Probes.Timeout())
	defer cancel()

	for _, p := range probes {
		_, _ = fmt.Fprintf(w, "%-20s %s\n", "Probe "+p.Name()+":", describeSignal(p.Evaluate(ctx)))
	}

	return nil
}

func describeSignal(sig probe.Signal) string {
	switch {
	case !sig.OK():
		return fmt.Sprintf("failed: %s", sig.Err)
	case sig.IsActive():
		return "activity observed"
	default:
		return "no activity"
	}
}
