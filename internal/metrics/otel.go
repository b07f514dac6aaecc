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

package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/coremount/vnodefs/wire"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var opsMeter = otel.Meter("vnode_ops")

var defaultLatencyDistribution = metric.WithExplicitBucketBoundaries(
	1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100,
	130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 5000, 10000,
)

type otelHandle struct {
	opsCount      metric.Int64Counter
	opsLatency    metric.Float64Histogram
	opsErrorCount metric.Int64Counter

	opAttrs    sync.Map // wire.Op -> metric.MeasurementOption
	errorAttrs sync.Map // opErrorKey -> metric.MeasurementOption
}

type opErrorKey struct {
	op       wire.Op
	category ErrorCategory
}

// NewOTel builds a Handle recording into OpenTelemetry metric instruments.
func NewOTel() (Handle, error) {
	opsCount, err := opsMeter.Int64Counter("vnode/ops_count",
		metric.WithDescription("Cumulative count of vnode operations dispatched, by opcode."))
	if err != nil {
		return nil, err
	}
	opsLatency, err := opsMeter.Float64Histogram("vnode/ops_latency",
		metric.WithDescription("Distribution of vnode operation latencies, by opcode."),
		metric.WithUnit("us"), defaultLatencyDistribution)
	if err != nil {
		return nil, err
	}
	opsErrorCount, err := opsMeter.Int64Counter("vnode/ops_error_count",
		metric.WithDescription("Cumulative count of vnode operation outcomes, by opcode and category."))
	if err != nil {
		return nil, err
	}
	return &otelHandle{opsCount: opsCount, opsLatency: opsLatency, opsErrorCount: opsErrorCount}, nil
}

func (h *otelHandle) opAttrSet(op wire.Op) metric.MeasurementOption {
	if v, ok := h.opAttrs.Load(op); ok {
		return v.(metric.MeasurementOption)
	}
	opt := metric.WithAttributeSet(attribute.NewSet(attribute.String("op", op.String())))
	v, _ := h.opAttrs.LoadOrStore(op, opt)
	return v.(metric.MeasurementOption)
}

func (h *otelHandle) errorAttrSet(op wire.Op, category ErrorCategory) metric.MeasurementOption {
	key := opErrorKey{op, category}
	if v, ok := h.errorAttrs.Load(key); ok {
		return v.(metric.MeasurementOption)
	}
	opt := metric.WithAttributeSet(attribute.NewSet(
		attribute.String("op", op.String()),
		attribute.String("category", string(category)),
	))
	v, _ := h.errorAttrs.LoadOrStore(key, opt)
	return v.(metric.MeasurementOption)
}

func (h *otelHandle) OpCount(ctx context.Context, op wire.Op, inc int64) {
	h.opsCount.Add(ctx, inc, h.opAttrSet(op))
}

func (h *otelHandle) OpLatency(ctx context.Context, op wire.Op, latency time.Duration) {
	h.opsLatency.Record(ctx, float64(latency.Microseconds()), h.opAttrSet(op))
}

func (h *otelHandle) OpErrorCount(ctx context.Context, op wire.Op, category ErrorCategory, inc int64) {
	h.opsErrorCount.Add(ctx, inc, h.errorAttrSet(op, category))
}
