// Copyright 2023 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package util collects small, dependency-light helpers shared across the
// ambient stack (cfg's ResolvedPath decoding, cmd's CLI-argument
// canonicalization, a random per-mount identifier).
package util

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// GCSFUSE_PARENT_PROCESS_DIR names the environment variable a daemonized
// mount helper sets to the working directory of the process that spawned
// it, so a relative path supplied on its original command line still
// resolves correctly after the daemon itself changes directory.
const GCSFUSE_PARENT_PROCESS_DIR = "GCSFUSE_PARENT_PROCESS_DIR"

// GetResolvedPath returns filePath resolved to an absolute path: "~/..."
// expands against the user's home directory, anything else is joined
// against GCSFUSE_PARENT_PROCESS_DIR if set, or the working directory
// otherwise. An already-absolute path and an empty path are returned
// unchanged.
func GetResolvedPath(filePath string) (resolvedPath string, err error) {
	if filePath == "" || filepath.IsAbs(filePath) {
		return filePath, nil
	}

	if strings.HasPrefix(filePath, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, filePath[2:]), nil
	}

	parentDir := os.Getenv(GCSFUSE_PARENT_PROCESS_DIR)
	if parentDir == "" {
		parentDir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(parentDir, filePath), nil
}

// Stringify marshals v to JSON, returning "" on failure. Used for
// best-effort debug logging of a struct, never for anything that needs a
// checked error.
func Stringify(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MiBsToBytes converts a MiB count to a byte count.
func MiBsToBytes(mib uint64) uint64 {
	return mib << 20
}

// BytesToHigherMiBs converts a byte count to a MiB count, rounding up.
func BytesToHigherMiBs(bytes uint64) uint64 {
	mib := bytes >> 20
	if bytes&((1<<20)-1) != 0 {
		mib++
	}
	return mib
}

// IsolateContextFromParentContext returns a new cancelable context that is
// independent of parent's cancellation, but still carries parent's values.
// Used so a long-running background operation (e.g. a session teardown)
// is not aborted just because the request context that triggered it was
// canceled.
func IsolateContextFromParentContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(context.WithoutCancel(parent))
}

// NewSessionID mints a random (UUID) identifier for one mount. Neither
// session.Session nor internal/logger calls it; no session id is attached
// to log lines or trace attributes.
func NewSessionID() string {
	return uuid.NewString()
}
