// Copyright 2024 Google Inc. All Rights Reserved.
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

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulateArgsResolvesRelativePath(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "mnt")
	require.NoError(t, os.Mkdir(sub, 0755))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	resolved, err := populateArgs([]string{"mnt"})
	require.NoError(t, err)
	assert.Equal(t, sub, resolved)
}

func TestPopulateArgsLeavesAbsolutePathUnchanged(t *testing.T) {
	dir := t.TempDir()

	resolved, err := populateArgs([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, resolved)
}

func TestRootCmdRequiresExactlyOneArg(t *testing.T) {
	rootCmd.SetArgs([]string{})
	err := rootCmd.Execute()
	assert.Error(t, err)
}

func TestRootCmdSucceedsWithValidMountPoint(t *testing.T) {
	require.NoError(t, bindErr)
	require.NoError(t, configFileErr)
	require.NoError(t, unmarshalErr)

	dir := t.TempDir()
	rootCmd.SetArgs([]string{dir})
	err := rootCmd.Execute()
	assert.NoError(t, err)
}
