// Package faketransport is an in-memory wire.Transport test double. It lets
// the session/vnode/handle/attrcache packages be exercised without a real
// kernel or daemon, following the "arena + index scheme" Design Note §9
// suggests for making ticket leaks statically detectable.
package faketransport

import (
	"context"
	"fmt"
	"sync"

	"github.com/coremount/vnodefs/wire"
)

// Handler answers one opcode for the fake daemon. Returning
// wire.ErrNotImplemented simulates ENOSYS; any other non-nil error is
// surfaced verbatim.
type Handler func(ctx context.Context, node wire.NodeID, request any) (reply any, err error)

type ticket struct {
	op   wire.Op
	node wire.NodeID
	live bool
}

func (t *ticket) Op() wire.Op { return t.op }

// Transport is a fake wire.Transport with a ticket arena: every ticket
// handed out is tracked, and Outstanding() reports any never Drop()'d,
// making leaks on an error path visible to tests.
type Transport struct {
	mu       sync.Mutex
	handlers map[wire.Op]Handler
	arena    []*ticket
	dead     bool
}

// New creates a fake transport with no handlers installed; every op will
// behave as ENOSYS until a handler is registered with Handle.
func New() *Transport {
	return &Transport{handlers: make(map[wire.Op]Handler)}
}

// Handle installs the handler invoked for op.
func (tr *Transport) Handle(op wire.Op, h Handler) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.handlers[op] = h
}

// Kill marks the transport dead; subsequent Prepare/SendWait calls fail
// with wire.ErrTransportDead.
func (tr *Transport) Kill() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.dead = true
}

func (tr *Transport) Prepare(op wire.Op, node wire.NodeID, payloadSize int) (wire.Ticket, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.dead {
		return nil, wire.ErrTransportDead
	}

	t := &ticket{op: op, node: node, live: true}
	tr.arena = append(tr.arena, t)
	return t, nil
}

func (tr *Transport) SendWait(ctx context.Context, tk wire.Ticket, request any) (any, error) {
	t, ok := tk.(*ticket)
	if !ok {
		return nil, fmt.Errorf("faketransport: foreign ticket type %T", tk)
	}

	tr.mu.Lock()
	dead := tr.dead
	h := tr.handlers[t.op]
	tr.mu.Unlock()

	if dead {
		return nil, wire.ErrTransportDead
	}
	if h == nil {
		return nil, wire.ErrNotImplemented
	}

	return h(ctx, t.node, request)
}

func (tr *Transport) Drop(tk wire.Ticket) {
	t, ok := tk.(*ticket)
	if !ok {
		return
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	t.live = false
}

// Outstanding returns the number of tickets prepared but never dropped.
// Tests call this after an operation to assert no ticket leaked.
func (tr *Transport) Outstanding() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	n := 0
	for _, t := range tr.arena {
		if t.live {
			n++
		}
	}
	return n
}
