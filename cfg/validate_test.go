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

func validConfig() Config {
	return Config{
		Logging: LoggingConfig{
			LogRotate: LogRotateLoggingConfig{MaxFileSizeMb: 1, BackupFileCount: 0},
		},
		Session: SessionConfig{BlockSizeBytes: 4096, MaxIOBytes: 4096},
	}
}

func TestValidateConfigAcceptsDefaults(t *testing.T) {
	c := validConfig()
	assert.NoError(t, ValidateConfig(&c))
}

func TestValidateConfigRejectsBadLogRotate(t *testing.T) {
	c := validConfig()
	c.Logging.LogRotate.MaxFileSizeMb = 0
	assert.Error(t, ValidateConfig(&c))
}

func TestValidateConfigRejectsTtlTooLow(t *testing.T) {
	c := validConfig()
	c.MetadataCache.TtlSecs = -2
	err := ValidateConfig(&c)
	assert.ErrorContains(t, err, MetadataCacheTtlSecsInvalidValueError)
}

func TestValidateConfigRejectsTtlTooHigh(t *testing.T) {
	c := validConfig()
	c.MetadataCache.TtlSecs = MaxSupportedTtlInSeconds + 1
	err := ValidateConfig(&c)
	assert.ErrorContains(t, err, MetadataCacheTtlSecsTooHighError)
}

func TestValidateConfigRejectsNegativeRateLimit(t *testing.T) {
	c := validConfig()
	c.RateLimit.OpsPerSecond = -1
	assert.Error(t, ValidateConfig(&c))
}

func TestValidateConfigRejectsZeroBlockSize(t *testing.T) {
	c := validConfig()
	c.Session.BlockSizeBytes = 0
	assert.Error(t, ValidateConfig(&c))
}

func TestValidateConfigRejectsZeroMaxIO(t *testing.T) {
	c := validConfig()
	c.Session.MaxIOBytes = 0
	assert.Error(t, ValidateConfig(&c))
}
