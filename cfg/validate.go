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
	"fmt"
	"math"
	"time"
)

const (
	MetadataCacheTtlSecsInvalidValueError = "the value of ttl-secs for metadata-cache can't be less than -1"
	MetadataCacheTtlSecsTooHighError      = "the value of ttl-secs in metadata-cache is too high to be supported. Max is 9223372036"
	// MaxSupportedTtlInSeconds represents maximum multiple of seconds representable by time.Duration.
	MaxSupportedTtlInSeconds = math.MaxInt64 / int64(time.Second)
)

func isValidLogRotateConfig(config *LogRotateLoggingConfig) error {
	if config.MaxFileSizeMb <= 0 {
		return fmt.Errorf("max-file-size-mb should be atleast 1")
	}
	if config.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (to retain all backup files) or a positive value")
	}
	return nil
}

func isValidMetadataConfig(c *MetadataCacheConfig) error {
	if c.TtlSecs < -1 {
		return fmt.Errorf(MetadataCacheTtlSecsInvalidValueError)
	}
	if c.TtlSecs > MaxSupportedTtlInSeconds {
		return fmt.Errorf(MetadataCacheTtlSecsTooHighError)
	}
	return nil
}

func isValidRateLimitConfig(c *RateLimitConfig) error {
	if c.OpsPerSecond < 0 {
		return fmt.Errorf("rate-limit.ops-per-second cannot be negative")
	}
	if c.BytesPerSecond < 0 {
		return fmt.Errorf("rate-limit.bytes-per-second cannot be negative")
	}
	return nil
}

func isValidSessionConfig(c *SessionConfig) error {
	if c.BlockSizeBytes == 0 {
		return fmt.Errorf("session.block-size-bytes must be positive")
	}
	if c.MaxIOBytes == 0 {
		return fmt.Errorf("session.max-io-bytes must be positive")
	}
	return nil
}

// ValidateConfig returns a non-nil error if the config is invalid.
func ValidateConfig(config *Config) error {
	if err := isValidLogRotateConfig(&config.Logging.LogRotate); err != nil {
		return fmt.Errorf("error parsing log-rotate config: %w", err)
	}

	if err := isValidMetadataConfig(&config.MetadataCache); err != nil {
		return fmt.Errorf("error parsing metadata-cache config: %w", err)
	}

	if err := isValidRateLimitConfig(&config.RateLimit); err != nil {
		return fmt.Errorf("error parsing rate-limit config: %w", err)
	}

	if err := isValidSessionConfig(&config.Session); err != nil {
		return fmt.Errorf("error parsing session config: %w", err)
	}

	return nil
}
