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

import "math"

// Rationalize updates the config fields based on the values of other fields,
// the same post-parse derivation step the teacher's cfg.Rationalize
// performs before a mount proceeds.
func Rationalize(c *Config) error {
	if c.Debug.LogMutex {
		c.Logging.Severity = TraceLogSeverity
	}

	if c.MetadataCache.TtlSecs < -1 {
		c.MetadataCache.TtlSecs = 0
	}
	if c.MetadataCache.TtlSecs > MaxSupportedTtlInSeconds {
		c.MetadataCache.TtlSecs = MaxSupportedTtlInSeconds
	}

	return nil
}

// MetadataCacheTTLSeconds returns the TTL MetadataCache.TtlSecs resolves to
// in whole seconds, clamping -1 ("cache forever") to the largest value a
// time.Duration can represent.
func MetadataCacheTTLSeconds(c *MetadataCacheConfig) int64 {
	if c.TtlSecs == -1 {
		return MaxSupportedTtlInSeconds
	}
	return int64(math.Max(0, float64(c.TtlSecs)))
}
