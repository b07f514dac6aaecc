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

// Package ratelimit wraps a wire.Transport with an ops/sec and a bytes/sec
// throttle, mirroring the role the teacher's ratelimit.Throttle played in
// ServerConfig (OpRateLimitHz / EgressBandwidthLimitBytesPerSecond): every
// dispatched request waits on both limiters before the underlying
// transport ever sees it, so a misbehaving or adversarial daemon client
// can't be used to hammer the daemon past its configured budget.
package ratelimit

import (
	"context"

	"github.com/coremount/vnodefs/wire"
	"golang.org/x/time/rate"
)

// Transport decorates an underlying wire.Transport, blocking SendWait until
// both the op-rate and byte-rate limiters admit the request. Prepare wraps
// the returned ticket so SendWait can recover the payload size Prepare was
// given without requiring request values to implement any interface.
type Transport struct {
	Next  wire.Transport
	Ops   *rate.Limiter
	Bytes *rate.Limiter
}

// New returns a Transport enforcing opsPerSecond and bytesPerSecond against
// next. A non-positive limit is treated as unlimited (matching
// cfg.RateLimitConfig's "0 means unlimited" contract) by using rate.Inf so
// Wait never blocks.
func New(next wire.Transport, opsPerSecond, bytesPerSecond float64) *Transport {
	return &Transport{
		Next:  next,
		Ops:   limiterFor(opsPerSecond),
		Bytes: limiterFor(bytesPerSecond),
	}
}

func limiterFor(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// ticket wraps the underlying transport's ticket together with the payload
// size Prepare was called with, so SendWait can size the byte-rate wait
// without request values needing to carry their own length.
type ticket struct {
	inner       wire.Ticket
	payloadSize int
}

func (t *ticket) Op() wire.Op { return t.inner.Op() }

func (t *Transport) Prepare(op wire.Op, node wire.NodeID, payloadSize int) (wire.Ticket, error) {
	inner, err := t.Next.Prepare(op, node, payloadSize)
	if err != nil {
		return nil, err
	}
	return &ticket{inner: inner, payloadSize: payloadSize}, nil
}

// SendWait waits for the op limiter to admit one request, then the byte
// limiter to admit the ticket's payload size (clamped to the limiter's
// burst so an oversized single request degrades to "wait for a full
// bucket" instead of failing outright), before forwarding to the
// underlying transport. A canceled ctx aborts the wait without ever
// reaching the daemon.
func (t *Transport) SendWait(ctx context.Context, tk wire.Ticket, request any) (any, error) {
	rt, ok := tk.(*ticket)
	if !ok {
		return nil, wire.ErrTransportDead
	}

	if err := t.Ops.Wait(ctx); err != nil {
		return nil, err
	}
	if n := rt.payloadSize; n > 0 {
		if burst := t.Bytes.Burst(); burst > 0 && n > burst {
			n = burst
		}
		if n > 0 {
			if err := t.Bytes.WaitN(ctx, n); err != nil {
				return nil, err
			}
		}
	}
	return t.Next.SendWait(ctx, rt.inner, request)
}

func (t *Transport) Drop(tk wire.Ticket) {
	if rt, ok := tk.(*ticket); ok {
		t.Next.Drop(rt.inner)
		return
	}
	t.Next.Drop(tk)
}
