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
	"fmt"
	"time"

	"github.com/coremount/vnodefs/wire"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	keyOp       = tag.MustNewKey("op")
	keyCategory = tag.MustNewKey("category")

	measureOpsCount      = stats.Int64("vnode/ops_count", "count of vnode operations dispatched", stats.UnitDimensionless)
	measureOpsLatency    = stats.Float64("vnode/ops_latency", "distribution of vnode operation latencies", stats.UnitMilliseconds)
	measureOpsErrorCount = stats.Int64("vnode/ops_error_count", "count of vnode operation outcomes by category", stats.UnitDimensionless)
)

type ocHandle struct{}

// NewOpenCensus registers the opencensus views for the op metrics and
// returns a Handle recording into them.
func NewOpenCensus() (Handle, error) {
	views := []*view.View{
		{
			Name:        "vnode/ops_count",
			Measure:     measureOpsCount,
			Description: measureOpsCount.Description(),
			TagKeys:     []tag.Key{keyOp},
			Aggregation: view.Count(),
		},
		{
			Name:        "vnode/ops_latency",
			Measure:     measureOpsLatency,
			Description: measureOpsLatency.Description(),
			TagKeys:     []tag.Key{keyOp},
			Aggregation: view.Distribution(1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000),
		},
		{
			Name:        "vnode/ops_error_count",
			Measure:     measureOpsErrorCount,
			Description: measureOpsErrorCount.Description(),
			TagKeys:     []tag.Key{keyOp, keyCategory},
			Aggregation: view.Count(),
		},
	}
	if err := view.Register(views...); err != nil {
		return nil, fmt.Errorf("register opencensus views: %w", err)
	}
	return ocHandle{}, nil
}

func (ocHandle) OpCount(ctx context.Context, op wire.Op, inc int64) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(keyOp, op.String())}, measureOpsCount.M(inc))
}

func (ocHandle) OpLatency(ctx context.Context, op wire.Op, latency time.Duration) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(keyOp, op.String())},
		measureOpsLatency.M(float64(latency.Microseconds())/1000))
}

func (ocHandle) OpErrorCount(ctx context.Context, op wire.Op, category ErrorCategory, inc int64) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{
		tag.Upsert(keyOp, op.String()),
		tag.Upsert(keyCategory, string(category)),
	}, measureOpsErrorCount.M(inc))
}
