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

// Package metrics records per-opcode outcome counters and latency
// histograms for the vnode operations layer.
package metrics

import (
	"context"
	"time"

	"github.com/coremount/vnodefs/wire"
)

// ErrorCategory buckets dispatch outcomes for the error counter, keeping its
// cardinality to a handful of values instead of one per errno.
type ErrorCategory string

const (
	CategoryOK          ErrorCategory = "ok"
	CategoryNotSupported ErrorCategory = "enosys"
	CategoryErrno        ErrorCategory = "errno"
	CategoryDead         ErrorCategory = "dead"
	CategoryProtocol     ErrorCategory = "protocol"
)

// Handle is the op-outcome metrics surface the session/vnode layers call
// into after every dispatch.
type Handle interface {
	OpCount(ctx context.Context, op wire.Op, inc int64)
	OpLatency(ctx context.Context, op wire.Op, latency time.Duration)
	OpErrorCount(ctx context.Context, op wire.Op, category ErrorCategory, inc int64)
}

// Join fans a single call out to every handle, so the otel and opencensus
// recorders can run side by side during the opencensus-to-otel migration.
func Join(handles ...Handle) Handle {
	live := make([]Handle, 0, len(handles))
	for _, h := range handles {
		if h != nil {
			live = append(live, h)
		}
	}
	return joined(live)
}

type joined []Handle

func (j joined) OpCount(ctx context.Context, op wire.Op, inc int64) {
	for _, h := range j {
		h.OpCount(ctx, op, inc)
	}
}

func (j joined) OpLatency(ctx context.Context, op wire.Op, latency time.Duration) {
	for _, h := range j {
		h.OpLatency(ctx, op, latency)
	}
}

func (j joined) OpErrorCount(ctx context.Context, op wire.Op, category ErrorCategory, inc int64) {
	for _, h := range j {
		h.OpErrorCount(ctx, op, category, inc)
	}
}

func NewNoop() Handle { return noopHandle{} }

type noopHandle struct{}

func (noopHandle) OpCount(context.Context, wire.Op, int64)                      {}
func (noopHandle) OpLatency(context.Context, wire.Op, time.Duration)            {}
func (noopHandle) OpErrorCount(context.Context, wire.Op, ErrorCategory, int64) {}
