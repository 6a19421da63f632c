// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

//go:build windows

package config

// WarnInsecurePermissions is a no-op on Windows, where POSIX permission
// bits do not describe who can read the file.
func WarnInsecurePermissions(_ string) {}
