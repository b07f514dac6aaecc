package wire

import (
	"context"
	"errors"
)

// ErrNotImplemented is returned by SendWait when the daemon replies that it
// does not implement the requested opcode ("function not implemented").
// The dispatcher adapter (session.dispatch) treats this specially: it
// clears the capability bit for the opcode and translates the outcome per
// spec.md §4.1.
var ErrNotImplemented = errors.New("wire: daemon does not implement op")

// ErrTransportDead is returned by Prepare/SendWait once the underlying
// transport has been torn down (daemon gone, socket closed).
var ErrTransportDead = errors.New("wire: transport is dead")

// Ticket is an opaque token for one in-flight request/reply, obtained from
// Transport.Prepare. It must be dropped exactly once: on the success path
// after SendWait, or on any error path after the reply (if any) has been
// read. See spec.md §3 "Ticket" and Design Note §9 on affine ticket
// ownership.
type Ticket interface {
	// Op returns the opcode this ticket was prepared for, for logging.
	Op() Op
}

// Transport is the narrow interface this layer consumes from the IPC layer
// (ticket dispatcher / wire-protocol framing), which is out of scope for
// this module (spec.md §1). A real implementation marshals Payload to bytes,
// writes them to the daemon socket, and waits for a reply; the
// wire/faketransport package provides an in-memory test double so that the
// vnode/session/handle/attrcache packages are independently testable.
type Transport interface {
	// Prepare allocates a ticket for the given opcode against the given
	// node, sized to hold payloadSize bytes of request body. It must not
	// block.
	Prepare(op Op, node NodeID, payloadSize int) (Ticket, error)

	// SendWait writes the given request payload and blocks until a reply
	// arrives or ctx is cancelled. It must be called with no coarse lock
	// held by the caller (spec.md §5's suspension-point rule). Returns
	// ErrNotImplemented or ErrTransportDead for those specific outcomes;
	// any other error is a verbatim errno to propagate.
	SendWait(ctx context.Context, t Ticket, request any) (reply any, err error)

	// Drop releases the ticket. Must be called exactly once per ticket
	// obtained from Prepare, whether or not SendWait was called.
	Drop(t Ticket)
}
