// dispatch.go implements component C3 (spec.md §4.3): the single path by
// which every vnode operation talks to the daemon, uniformly applying the
// capability-missing policy (an ENOSYS-equivalent reply downgrades the
// capability bit and is surfaced as *NotSupportedError rather than a raw
// protocol error) and the dead-session policy (spec.md §7 "session death").
//
// Grounded on fs/fs.go's single entry point per kernel op combined with
// fuseutil/server.go's op dispatch loop, generalized past gcsfuse's
// GCS-bucket calls into calls through the narrow wire.Transport interface.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/coremount/vnodefs/internal/metrics"
	"github.com/coremount/vnodefs/wire"
)

// ErrDead is returned by Dispatch once the session has been marked dead
// (spec.md §7): every op fails fast without contacting the daemon.
var ErrDead = errors.New("session: dead")

// NotSupportedError is returned by Dispatch when the daemon has reported
// (now or previously) that it does not implement op. vnode translates this
// to ENOTSUP or an op-specific fallback, never to ENOSYS (spec.md §4.1, §4.4).
type NotSupportedError struct {
	Op wire.Op
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("session: %v not supported by daemon", e.Op)
}

// Dispatch sends one request for op against node through the session's
// transport, applying the capability check before dispatch and the
// ENOSYS-downgrade/dead-session handling after. payloadSize is passed to
// Transport.Prepare for sizing the wire buffer.
//
// Callers must not hold s.mu: Dispatch may block for the daemon's reply,
// and fs/fs.go's lock-ordering doctrine requires the coarse lock be
// dropped around any blocking call (spec.md §5, §9 "Unlocked helper").
func (s *Session) Dispatch(
	ctx context.Context,
	op wire.Op,
	node wire.NodeID,
	payloadSize int,
	request any,
) (any, error) {
	s.Lock()
	dead := s.dead
	s.Unlock()
	if dead {
		s.Metrics.OpErrorCount(ctx, op, metrics.CategoryDead, 1)
		return nil, ErrDead
	}

	if !s.caps.Has(op) {
		s.Metrics.OpErrorCount(ctx, op, metrics.CategoryNotSupported, 1)
		return nil, &NotSupportedError{Op: op}
	}

	start := s.Clock.Now()
	reply, err := s.sendOnce(ctx, op, node, payloadSize, request)
	s.Metrics.OpLatency(ctx, op, s.Clock.Now().Sub(start))
	s.Metrics.OpCount(ctx, op, 1)
	if err != nil {
		s.Metrics.OpErrorCount(ctx, op, categorize(err), 1)
	}
	return reply, err
}

func (s *Session) sendOnce(
	ctx context.Context,
	op wire.Op,
	node wire.NodeID,
	payloadSize int,
	request any,
) (any, error) {
	ticket, err := s.Transport.Prepare(op, node, payloadSize)
	if err != nil {
		return nil, s.classifyTransportError(op, err)
	}
	defer s.Transport.Drop(ticket)

	reply, err := s.Transport.SendWait(ctx, ticket, request)
	if err != nil {
		return nil, s.classifyTransportError(op, err)
	}

	return reply, nil
}

func (s *Session) classifyTransportError(op wire.Op, err error) error {
	switch {
	case errors.Is(err, wire.ErrNotImplemented):
		s.caps.Clear(op)
		return &NotSupportedError{Op: op}
	case errors.Is(err, wire.ErrTransportDead):
		s.Lock()
		s.dead = true
		s.Unlock()
		return ErrDead
	default:
		return err
	}
}

func categorize(err error) metrics.ErrorCategory {
	var notSupported *NotSupportedError
	switch {
	case errors.As(err, &notSupported):
		return metrics.CategoryNotSupported
	case errors.Is(err, ErrDead):
		return metrics.CategoryDead
	default:
		return metrics.CategoryErrno
	}
}
