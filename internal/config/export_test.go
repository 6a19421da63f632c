// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package config

// SetKeyringGetForTest swaps the keyring lookup and returns a restore
// function, so tests never touch the OS keyring.
func SetKeyringGetForTest(fn func(service, key string) (string, error)) (restore func()) {
	prev := keyringGet
	keyringGet = fn
	return func() { keyringGet = prev }
}
