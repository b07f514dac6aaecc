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

package cfg

// IsRateLimited reports whether either rate-limit knob is active.
func IsRateLimited(mountConfig *Config) bool {
	return mountConfig.RateLimit.OpsPerSecond > 0 || mountConfig.RateLimit.BytesPerSecond > 0
}

// IsMetadataCacheEnabled reports whether attrcache should hold entries past
// their dispatch (TtlSecs == 0 disables caching entirely).
func IsMetadataCacheEnabled(mountConfig *Config) bool {
	return mountConfig.MetadataCache.TtlSecs != 0
}
