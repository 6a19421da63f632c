// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlewatch-dev/idlewatch/internal/config"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the inactivity monitor",
		Long:  "Load configuration, build the enabled probes, and run the polling loop until SIGINT/SIGTERM or until the host is shut down.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override status server listen address (host:port)")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	config.WarnInsecurePermissions(v.ConfigFileUsed())

	if v.GetBool("verbose") {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	mon, err := wireMonitor(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srvErr := make(chan error, 1)
	if mon.Server != nil {
		go func() {
			srvErr <- mon.Server.Start(ctx)
		}()
		slog.Info("status server listening", "address", cfg.Server.Listen)
	} else {
		close(srvErr)
	}

	// The engine loop blocks until the context is cancelled. A status
	// server failure is logged but does not stop monitoring — the engine
	// is the whole point of the process.
	engineErr := mon.Engine.Run(ctx)

	if mon.Server != nil {
		stop()
		if err := <-srvErr; err != nil {
			slog.Warn("status server exited with error", "error", err)
		}
	}

	return engineErr
}
