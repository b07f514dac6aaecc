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
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the top-level configuration surface for a mount of the vnode
// layer: one struct covering every ambient concern (logging, debug,
// metrics, tracing, rate limiting) plus the session-wide data flags and
// cache knobs spec.md §3 names. Bound from flags via BindFlags and/or a
// YAML file via viper, the same two-source pattern the teacher's cfg
// package uses.
type Config struct {
	AppName string `yaml:"app-name" mapstructure:"app-name"`

	Debug DebugConfig `yaml:"debug" mapstructure:"debug"`

	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	Session SessionConfig `yaml:"session" mapstructure:"session"`

	MetadataCache MetadataCacheConfig `yaml:"metadata-cache" mapstructure:"metadata-cache"`

	RateLimit RateLimitConfig `yaml:"rate-limit" mapstructure:"rate-limit"`

	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`

	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	Root RootConfig `yaml:"root" mapstructure:"root"`
}

// DebugConfig gates invariant-violation panics and lock-hold logging.
type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation" mapstructure:"exit-on-invariant-violation"`

	LogMutex bool `yaml:"log-mutex" mapstructure:"log-mutex"`
}

// SessionConfig maps directly onto session.Flags plus the negotiated I/O
// sizes spec.md §3 lists on the Session struct.
type SessionConfig struct {
	NoAppleXattr      bool `yaml:"no-apple-xattr" mapstructure:"no-apple-xattr"`
	AutoXattr         bool `yaml:"auto-xattr" mapstructure:"auto-xattr"`
	JailSymlinks      bool `yaml:"jail-symlinks" mapstructure:"jail-symlinks"`
	NoVnCache         bool `yaml:"no-vncache" mapstructure:"no-vncache"`
	NoSyncOnClose     bool `yaml:"no-sync-on-close" mapstructure:"no-sync-on-close"`
	NoSyncWrites      bool `yaml:"no-sync-writes" mapstructure:"no-sync-writes"`
	RejectAppleDouble bool `yaml:"reject-apple-double" mapstructure:"reject-apple-double"`
	ReadOnly          bool `yaml:"read-only" mapstructure:"read-only"`

	BlockSizeBytes uint32 `yaml:"block-size-bytes" mapstructure:"block-size-bytes"`
	MaxIOBytes     uint32 `yaml:"max-io-bytes" mapstructure:"max-io-bytes"`
}

// MetadataCacheConfig controls attrcache's (component C2) default validity
// window. TtlSecs of -1 means cache forever; 0 disables caching.
type MetadataCacheConfig struct {
	TtlSecs int64 `yaml:"ttl-secs" mapstructure:"ttl-secs"`
}

// RateLimitConfig configures internal/ratelimit's op and byte throttles on
// dispatched requests. A zero value in either field means unlimited.
type RateLimitConfig struct {
	OpsPerSecond   float64 `yaml:"ops-per-second" mapstructure:"ops-per-second"`
	BytesPerSecond float64 `yaml:"bytes-per-second" mapstructure:"bytes-per-second"`
}

// TracingConfig toggles internal/tracing's span-per-dispatch instrumentation.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// MetricsConfig selects which metrics.Handle backend(s) internal/metrics
// wires up.
type MetricsConfig struct {
	EnableOpenCensus    bool `yaml:"enable-opencensus" mapstructure:"enable-opencensus"`
	EnableOpenTelemetry bool `yaml:"enable-opentelemetry" mapstructure:"enable-opentelemetry"`
}

// RootConfig supplies the fabricated attributes getattr/statfs return for
// the root vnode when the session is dead (spec.md §4.6 "getattr": "On
// ENOTCONN for the root vnode, fabricate attrs from daemon credentials and
// S_IRWXU").
type RootConfig struct {
	Uid  uint32 `yaml:"uid" mapstructure:"uid"`
	Gid  uint32 `yaml:"gid" mapstructure:"gid"`
	Mode Octal  `yaml:"mode" mapstructure:"mode"`
}

// BindFlags registers the command-line flags this layer accepts and binds
// each to its viper config key, following the teacher's one-flag-at-a-time
// BindPFlag pattern.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("app-name", "", "", "The application name of this mount.")
	if err = viper.BindPFlag("app-name", flagSet.Lookup("app-name")); err != nil {
		return err
	}

	flagSet.BoolP("debug-invariants", "", false, "Exit when internal invariants are violated.")
	if err = viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug-invariants")); err != nil {
		return err
	}

	flagSet.BoolP("debug-mutex", "", false, "Log when a lock is held too long.")
	if err = viper.BindPFlag("debug.log-mutex", flagSet.Lookup("debug-mutex")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", string(InfoLogSeverity), "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
	if err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-format", "", "text", "Logging output format: text or json.")
	if err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to the log file. Empty means log to stderr.")
	if err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	flagSet.BoolP("no-apple-xattr", "", false, "Reject xattr names starting with com.apple.")
	if err = viper.BindPFlag("session.no-apple-xattr", flagSet.Lookup("no-apple-xattr")); err != nil {
		return err
	}

	flagSet.BoolP("auto-xattr", "", false, "Let the host VFS handle xattrs; refuse xattr ops here.")
	if err = viper.BindPFlag("session.auto-xattr", flagSet.Lookup("auto-xattr")); err != nil {
		return err
	}

	flagSet.BoolP("jail-symlinks", "", false, "Prefix absolute symlink targets with the mountpoint.")
	if err = viper.BindPFlag("session.jail-symlinks", flagSet.Lookup("jail-symlinks")); err != nil {
		return err
	}

	flagSet.BoolP("no-vncache", "", false, "Bypass the host name cache entirely.")
	if err = viper.BindPFlag("session.no-vncache", flagSet.Lookup("no-vncache")); err != nil {
		return err
	}

	flagSet.BoolP("no-sync-on-close", "", false, "Suppress the synchronous dirty-page push on close.")
	if err = viper.BindPFlag("session.no-sync-on-close", flagSet.Lookup("no-sync-on-close")); err != nil {
		return err
	}

	flagSet.BoolP("no-sync-writes", "", false, "Suppress sync-on-write.")
	if err = viper.BindPFlag("session.no-sync-writes", flagSet.Lookup("no-sync-writes")); err != nil {
		return err
	}

	flagSet.BoolP("reject-apple-double", "", false, "Reject Finder's \"._name\" shadow files at lookup/create.")
	if err = viper.BindPFlag("session.reject-apple-double", flagSet.Lookup("reject-apple-double")); err != nil {
		return err
	}

	flagSet.BoolP("read-only", "", false, "Reject every SETATTR with EROFS.")
	if err = viper.BindPFlag("session.read-only", flagSet.Lookup("read-only")); err != nil {
		return err
	}

	flagSet.Uint32P("block-size-bytes", "", 4096, "Negotiated I/O block size.")
	if err = viper.BindPFlag("session.block-size-bytes", flagSet.Lookup("block-size-bytes")); err != nil {
		return err
	}

	flagSet.Uint32P("max-io-bytes", "", 128*1024, "Maximum single direct-I/O request size.")
	if err = viper.BindPFlag("session.max-io-bytes", flagSet.Lookup("max-io-bytes")); err != nil {
		return err
	}

	flagSet.Int64P("metadata-cache-ttl-secs", "", 60, "Attribute/entry cache TTL in seconds. -1 caches forever, 0 disables caching.")
	if err = viper.BindPFlag("metadata-cache.ttl-secs", flagSet.Lookup("metadata-cache-ttl-secs")); err != nil {
		return err
	}

	flagSet.Float64P("rate-limit-ops", "", 0, "Maximum dispatched ops per second. 0 means unlimited.")
	if err = viper.BindPFlag("rate-limit.ops-per-second", flagSet.Lookup("rate-limit-ops")); err != nil {
		return err
	}

	flagSet.Float64P("rate-limit-bytes", "", 0, "Maximum dispatched payload bytes per second. 0 means unlimited.")
	if err = viper.BindPFlag("rate-limit.bytes-per-second", flagSet.Lookup("rate-limit-bytes")); err != nil {
		return err
	}

	flagSet.BoolP("enable-tracing", "", false, "Emit one trace span per dispatched op.")
	if err = viper.BindPFlag("tracing.enabled", flagSet.Lookup("enable-tracing")); err != nil {
		return err
	}

	flagSet.BoolP("enable-opencensus", "", false, "Record op metrics via OpenCensus.")
	if err = viper.BindPFlag("metrics.enable-opencensus", flagSet.Lookup("enable-opencensus")); err != nil {
		return err
	}

	flagSet.BoolP("enable-opentelemetry", "", true, "Record op metrics via OpenTelemetry.")
	if err = viper.BindPFlag("metrics.enable-opentelemetry", flagSet.Lookup("enable-opentelemetry")); err != nil {
		return err
	}

	flagSet.Uint32P("root-uid", "", 0, "UID reported for the fabricated root attrs of a dead session.")
	if err = viper.BindPFlag("root.uid", flagSet.Lookup("root-uid")); err != nil {
		return err
	}

	flagSet.Uint32P("root-gid", "", 0, "GID reported for the fabricated root attrs of a dead session.")
	if err = viper.BindPFlag("root.gid", flagSet.Lookup("root-gid")); err != nil {
		return err
	}

	flagSet.StringP("root-mode", "", "0700", "Octal permission bits reported for the fabricated root attrs of a dead session.")
	if err = viper.BindPFlag("root.mode", flagSet.Lookup("root-mode")); err != nil {
		return err
	}

	return nil
}
