// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

// Package poweroff runs the host power-off command.
package poweroff

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
	"golang.org/x/sys/unix"
)

// DefaultCommand mirrors the conventional host shutdown invocation.
const DefaultCommand = "shutdown -h now"

// commandTimeout bounds the shutdown command itself; the command is
// expected to return quickly even though the power-off it starts is slow.
const commandTimeout = 30 * time.Second

// ExecRunner powers the host off by running a configured command. It
// syncs filesystems first so buffered writes survive the power cut.
type ExecRunner struct {
	argv     []string
	syncFunc func() // for testing
}

// NewExecRunner creates an ExecRunner for the given command line. An
// empty command selects DefaultCommand.
func NewExecRunner(command string) (*ExecRunner, error) {
	if command == "" {
		command = DefaultCommand
	}

	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, iwerr.New(iwerr.CodeConfigValidateInvalidValue, "shutdown command must not be blank")
	}

	return &ExecRunner{
		argv:     argv,
		syncFunc: unix.Sync,
	}, nil
}

// PowerOff syncs filesystems and runs the shutdown command.
func (r *ExecRunner) PowerOff(ctx context.Context) error {
	r.syncFunc()

	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.argv[0], r.argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return iwerr.Wrapf(err, iwerr.CodeShutdownPrimitiveFailure,
			"running %q: %s", strings.Join(r.argv, " "), strings.TrimSpace(string(out)))
	}

	slog.Info("power-off command completed", "command", strings.Join(r.argv, " "))
	return nil
}
