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

package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOctalUnmarshalText(t *testing.T) {
	var o Octal
	assert.NoError(t, o.UnmarshalText([]byte("644")))
	assert.Equal(t, Octal(0o644), o)
	assert.Equal(t, "644", o.String())
}

func TestOctalUnmarshalTextInvalid(t *testing.T) {
	var o Octal
	assert.Error(t, o.UnmarshalText([]byte("not-octal")))
}

func TestLogSeverityUnmarshalText(t *testing.T) {
	var l LogSeverity
	assert.NoError(t, l.UnmarshalText([]byte("debug")))
	assert.Equal(t, DebugLogSeverity, l)
}

func TestLogSeverityUnmarshalTextInvalid(t *testing.T) {
	var l LogSeverity
	assert.Error(t, l.UnmarshalText([]byte("bogus")))
}

func TestLogSeverityRank(t *testing.T) {
	assert.Less(t, TraceLogSeverity.Rank(), DebugLogSeverity.Rank())
	assert.Less(t, ErrorLogSeverity.Rank(), OffLogSeverity.Rank())
	assert.Equal(t, -1, LogSeverity("bogus").Rank())
}

func TestResolvedPathUnmarshalText(t *testing.T) {
	var p ResolvedPath
	assert.NoError(t, p.UnmarshalText([]byte("relative/path")))
	assert.Equal(t, "relative/path", string(p)[len(string(p))-len("relative/path"):])
}
