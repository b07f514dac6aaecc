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

const (
	// DefaultBlockSizeBytes is the negotiated I/O block size used when
	// session.block-size-bytes is unset.
	DefaultBlockSizeBytes uint32 = 4096

	// DefaultMaxIOBytes is the maximum single direct-I/O request size used
	// when session.max-io-bytes is unset.
	DefaultMaxIOBytes uint32 = 128 * 1024

	// DefaultMetadataCacheTtlSecs is the attrcache validity window used
	// when metadata-cache.ttl-secs is unset.
	DefaultMetadataCacheTtlSecs int64 = 60
)
