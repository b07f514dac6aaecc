// Copyright 2024 Google LLC
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

package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coremount/vnodefs/internal/metrics"
	"github.com/coremount/vnodefs/session"
	"github.com/coremount/vnodefs/wire"
	"github.com/coremount/vnodefs/wire/faketransport"
	"github.com/jacobsa/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandle is a metrics.Handle test double that records every call
// under a mutex, for assertions without a real exporter backend.
type recordingHandle struct {
	mu      sync.Mutex
	counts  map[wire.Op]int64
	errs    map[metrics.ErrorCategory]int64
	latency int
}

func newRecordingHandle() *recordingHandle {
	return &recordingHandle{
		counts: make(map[wire.Op]int64),
		errs:   make(map[metrics.ErrorCategory]int64),
	}
}

func (h *recordingHandle) OpCount(ctx context.Context, op wire.Op, inc int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[op] += inc
}

func (h *recordingHandle) OpLatency(ctx context.Context, op wire.Op, latency time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latency++
}

func (h *recordingHandle) OpErrorCount(ctx context.Context, op wire.Op, category metrics.ErrorCategory, inc int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs[category] += inc
}

func newTestSession(tr wire.Transport) (*session.Session, *recordingHandle) {
	s := session.New(tr, &timeutil.SimulatedClock{}, "/mnt/test", session.Flags{})
	rec := newRecordingHandle()
	s.Metrics = rec
	return s, rec
}

func TestDispatchRecordsSuccessMetrics(t *testing.T) {
	tr := faketransport.New()
	tr.Handle(wire.OpGetattr, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		return &wire.GetattrReply{}, nil
	})
	s, rec := newTestSession(tr)

	_, err := s.Dispatch(context.Background(), wire.OpGetattr, wire.RootNodeID, 0, nil)
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, int64(1), rec.counts[wire.OpGetattr])
	assert.Equal(t, 1, rec.latency)
	assert.Empty(t, rec.errs)
}

func TestDispatchRecordsNotSupportedWithoutContactingDaemon(t *testing.T) {
	tr := faketransport.New()
	s, rec := newTestSession(tr)
	s.Capabilities().Clear(wire.OpGetattr)

	_, err := s.Dispatch(context.Background(), wire.OpGetattr, wire.RootNodeID, 0, nil)
	require.Error(t, err)
	var notSupported *session.NotSupportedError
	assert.ErrorAs(t, err, &notSupported)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, int64(1), rec.errs[metrics.CategoryNotSupported])
	assert.Zero(t, rec.counts[wire.OpGetattr])
}

func TestDispatchRecordsDeadAfterTransportDies(t *testing.T) {
	tr := faketransport.New()
	tr.Kill()
	s, rec := newTestSession(tr)

	_, err := s.Dispatch(context.Background(), wire.OpGetattr, wire.RootNodeID, 0, nil)
	require.ErrorIs(t, err, session.ErrDead)

	_, err = s.Dispatch(context.Background(), wire.OpGetattr, wire.RootNodeID, 0, nil)
	require.ErrorIs(t, err, session.ErrDead)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, int64(2), rec.errs[metrics.CategoryDead])
}

func TestDispatchRecordsErrnoCategoryForOrdinaryErrors(t *testing.T) {
	tr := faketransport.New()
	tr.Handle(wire.OpGetattr, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		return nil, assert.AnError
	})
	s, rec := newTestSession(tr)

	_, err := s.Dispatch(context.Background(), wire.OpGetattr, wire.RootNodeID, 0, nil)
	require.Error(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, int64(1), rec.errs[metrics.CategoryErrno])
}
