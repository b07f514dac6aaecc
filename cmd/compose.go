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

// Package cmd is the composition root that turns a cfg.Config plus an
// already-connected wire.Transport into a ready-to-use vnode.FS: it wires
// logging, metrics, rate limiting and tracing around the transport and
// session the same way gcsfuse's legacy_main.go wired a ServerConfig out of
// its flags before handing it to fuse.Mount.
//
// What actually turns an FS into a mounted filesystem — the kernel mount
// syscall, the daemon handshake, the transport's own socket/framing, and the
// host name/page cache — is out of scope here per spec.md §1; BuildMount
// takes those as arguments from the binary that imports this package and
// stops at a constructed FS.
package cmd

import (
	"fmt"
	"time"

	"github.com/coremount/vnodefs/cfg"
	"github.com/coremount/vnodefs/internal/logger"
	"github.com/coremount/vnodefs/internal/metrics"
	"github.com/coremount/vnodefs/internal/ratelimit"
	"github.com/coremount/vnodefs/internal/tracing"
	"github.com/coremount/vnodefs/namecache"
	"github.com/coremount/vnodefs/pagecache"
	"github.com/coremount/vnodefs/session"
	"github.com/coremount/vnodefs/vnode"
	"github.com/coremount/vnodefs/wire"
	"github.com/jacobsa/timeutil"
	"go.opentelemetry.io/otel"
)

// Mount bundles the pieces BuildMount assembles: the session every
// dispatched op flows through and the FS a host VFS bridge dispatches
// vnode calls to.
type Mount struct {
	Session *session.Session
	FS      *vnode.FS
}

// BuildMount wires tr (an already-connected daemon transport) through the
// rate-limit and tracing decorators the config selects, builds a metrics
// Handle from the config's backend toggles, and returns a Session and FS
// ready for dispatch. nc and pc are the host's name-cache and page-cache
// bridges; creds identifies the caller the FS operates on behalf of (the
// host VFS bridge's own process credentials, typically).
func BuildMount(c *cfg.Config, tr wire.Transport, mountpoint string, nc namecache.Cache, pc pagecache.Host, creds vnode.Credentials) (*Mount, error) {
	if err := cfg.Rationalize(c); err != nil {
		return nil, fmt.Errorf("rationalizing config: %w", err)
	}
	if err := cfg.ValidateConfig(c); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if err := logger.InitLogFile(c.Logging); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	decorated := tr
	if cfg.IsRateLimited(c) {
		decorated = ratelimit.New(decorated, c.RateLimit.OpsPerSecond, c.RateLimit.BytesPerSecond)
		logger.Infof("rate limiting enabled: %.0f ops/s, %.0f bytes/s", c.RateLimit.OpsPerSecond, c.RateLimit.BytesPerSecond)
	}
	if c.Tracing.Enabled {
		decorated = tracing.New(decorated, otel.Tracer("vnodefs"))
		logger.Infof("tracing enabled")
	}

	handle, err := buildMetricsHandle(&c.Metrics)
	if err != nil {
		return nil, fmt.Errorf("building metrics handle: %w", err)
	}

	flags := session.Flags{
		NoAppleXattr:      c.Session.NoAppleXattr,
		AutoXattr:         c.Session.AutoXattr,
		JailSymlinks:      c.Session.JailSymlinks,
		NoVnCache:         c.Session.NoVnCache,
		NoSyncOnClose:     c.Session.NoSyncOnClose,
		NoSyncWrites:      c.Session.NoSyncWrites,
		RejectAppleDouble: c.Session.RejectAppleDouble,
		ReadOnly:          c.Session.ReadOnly,
	}

	s := session.New(decorated, timeutil.RealClock(), mountpoint, flags)
	s.Metrics = handle
	s.BlockSize = c.Session.BlockSizeBytes
	s.MaxIO = c.Session.MaxIOBytes
	s.AttrValidDefault = time.Duration(cfg.MetadataCacheTTLSeconds(&c.MetadataCache)) * time.Second
	s.EntryValidDefault = s.AttrValidDefault

	fs := vnode.New(s, nc, pc, creds)
	fs.InitRoot()

	return &Mount{Session: s, FS: fs}, nil
}

// buildMetricsHandle joins the enabled backends, following the teacher's
// opencensus-to-otel dual-recording migration pattern (common/telemetry.go's
// JoinShutdownFunc combined multiple exporters the same way).
func buildMetricsHandle(mc *cfg.MetricsConfig) (metrics.Handle, error) {
	var handles []metrics.Handle
	if mc.EnableOpenCensus {
		h, err := metrics.NewOpenCensus()
		if err != nil {
			return nil, fmt.Errorf("opencensus: %w", err)
		}
		handles = append(handles, h)
	}
	if mc.EnableOpenTelemetry {
		h, err := metrics.NewOTel()
		if err != nil {
			return nil, fmt.Errorf("opentelemetry: %w", err)
		}
		handles = append(handles, h)
	}
	if len(handles) == 0 {
		return metrics.NewNoop(), nil
	}
	return metrics.Join(handles...), nil
}
