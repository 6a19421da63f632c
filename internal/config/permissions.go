// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// recommendedPerm is what the bootstrap writes and what the permission
// check expects: owner read/write only, since the file may carry the
// panel API key.
const recommendedPerm fs.FileMode = 0o600

// WarnInsecurePermissions logs a warning when the config file at path is
// readable by group or world. It never fails startup; the operator
// decides whether an exposed panel API key matters on their host.
func WarnInsecurePermissions(path string) {
	if path == "" {
		return
	}

	insecure, mode, err := configReadableByOthers(path)
	if err != nil {
		slog.Debug("config permission check skipped", "path", path, "error", err)
		return
	}

	if insecure {
		slog.Warn("config file is readable by other users, the panel API key may be exposed",
			"path", path,
			"mode", mode,
			"recommended", recommendedPerm)
	}
}

func configReadableByOthers(path string) (bool, fs.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, 0, err
	}

	mode := info.Mode()
	return mode.Perm()&0o044 != 0, mode, nil
}
