// Copyright 2025 Google LLC
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

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestAsyncLogger_WriteAndClose(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")
	lj := &lumberjack.Logger{Filename: logPath}
	asyncLogger := NewAsyncLogger(lj, 10)

	fmt.Fprintln(asyncLogger, "message 1")
	fmt.Fprintln(asyncLogger, "message 2")
	fmt.Fprintln(asyncLogger, "message 3")
	err := asyncLogger.Close()

	require.NoError(t, err)
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "message 1\nmessage 2\nmessage 3\n", string(content))
}

func TestAsyncLogger_DropsMessageWhenBufferFull(t *testing.T) {
	block := make(chan struct{})
	w := &blockingWriter{release: block}
	asyncLogger := NewAsyncLogger(w, 1)

	// The first write is picked up by the drain goroutine and blocks there,
	// so the buffered slot is free for exactly one more write; anything
	// past that must be dropped rather than stall the caller.
	fmt.Fprintln(asyncLogger, "first")
	for i := 0; i < 5; i++ {
		fmt.Fprintf(asyncLogger, "extra %d\n", i)
	}
	close(block)
	require.NoError(t, asyncLogger.Close())
}

type blockingWriter struct {
	release chan struct{}
	fired   bool
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	if !w.fired {
		w.fired = true
		<-w.release
	}
	return len(p), nil
}
