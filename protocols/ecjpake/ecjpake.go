// Package ecjpake implements the two-party EC-J-PAKE password
// authenticated key exchange: both peers hold the same low-entropy
// secret and derive a high-entropy 32-byte key over an untrusted
// channel, without revealing the secret to an eavesdropper or to each
// other.
//
// A handshake runs over a Context:
//
//	ctx, _ := ecjpake.Open(curve.P256(), []byte("password"), "alice", "bob")
//	defer ctx.Close()
//
//	s1 := ecjpake.NewStep1(ctx)
//	ctx.Step1Generate(s1)      // -> send s1
//	ctx.Step1Process(peerS1)   // <- peer's step 1
//	s2 := ecjpake.NewStep2(ctx)
//	ctx.Step2Generate(s2)      // -> send s2
//	ctx.Step2Process(peerS2)   // <- peer's step 2; key is now ready
//	key := ctx.SharedKey()
//
// Steps 3A and 3B optionally confirm that both sides derived the same
// key. Transport of the step payloads is the caller's responsibility;
// pkg/protocol provides a message-driven driver for the full sequence.
//
// Every validation failure is fatal to the session: the context is
// poisoned and all further operations return ErrSessionFailed. Retrying
// means opening a fresh context. A context is not safe for concurrent
// use; independent contexts may run in parallel.
package ecjpake

import (
	"github.com/cronokirby/saferith"

	"github.com/passware/ecjpake/pkg/math/curve"
	"github.com/passware/ecjpake/pkg/party"
)

// progress records which handshake stages have completed. Stages only
// accumulate; they reset only when a new handshake starts on the same
// context.
type progress uint16

const (
	progS1Sent progress = 1 << iota
	progS1Received
	progS2Sent
	progS2Received
	progKeyReady
	progS3ASent
	progS3AOk
	progConfirmed
)

// Phase is the coarse position of a context in the handshake.
type Phase int

const (
	PhaseFresh Phase = iota
	PhaseS1Sent
	PhaseS1Received
	PhaseS2Sent
	PhaseS2Received
	PhaseKeyReady
	PhaseS3ASent
	PhaseS3AOk
	PhaseConfirmed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseFresh:
		return "Fresh"
	case PhaseS1Sent:
		return "S1Sent"
	case PhaseS1Received:
		return "S1Received"
	case PhaseS2Sent:
		return "S2Sent"
	case PhaseS2Received:
		return "S2Received"
	case PhaseKeyReady:
		return "KeyReady"
	case PhaseS3ASent:
		return "S3ASent"
	case PhaseS3AOk:
		return "S3AOk"
	case PhaseConfirmed:
		return "Confirmed"
	case PhaseFailed:
		return "Failed"
	}
	return "Unknown"
}

// KeySize is the byte length of the derived shared key.
const KeySize = 32

// Context holds the per-session state of one party. It owns every
// point and scalar it stores; step payloads never share storage with
// it.
type Context struct {
	group   curve.Curve
	localID party.ID
	peerID  party.ID

	// s is the shared low-entropy secret reduced mod q; non-zero.
	s curve.Scalar

	// Local round-1 secrets and publics.
	x1, x2   curve.Scalar
	gx1, gx2 curve.Point

	// Peer round-1 publics, installed by Step1Process.
	gx3, gx4 curve.Point

	// gb is the peer's round-2 generator as reconstructed here; b is
	// the peer's round-2 element. Installed by Step2Process.
	gb, b curve.Point

	key [KeySize]byte

	prog   progress
	failed bool
	closed bool
}

// Open creates a session context for a handshake between localID and
// peerID. The secret is reduced mod the group order and must not
// reduce to zero; the identities must differ, since they label the
// direction of every zero-knowledge proof.
func Open(group curve.Curve, secret []byte, localID, peerID party.ID) (*Context, error) {
	if group == nil {
		return nil, opErr(OpCtxNew, "group is nil")
	}
	if localID == peerID {
		return nil, opErr(OpCtxNew, "local and peer identities are equal")
	}
	s := group.NewScalar().SetNat(new(saferith.Nat).SetBytes(secret))
	if s.IsZero() {
		return nil, opErr(OpCtxNew, "secret reduces to zero mod the group order")
	}
	return &Context{
		group:   group,
		localID: localID,
		peerID:  peerID,
		s:       s,
	}, nil
}

// Close releases the context: secret scalars and the derived key are
// zeroized and every stored group element is dropped. All later
// operations return an error.
func (c *Context) Close() {
	if c.closed {
		return
	}
	zeroScalar(c.s)
	zeroScalar(c.x1)
	zeroScalar(c.x2)
	c.s, c.x1, c.x2 = nil, nil, nil
	c.gx1, c.gx2, c.gx3, c.gx4 = nil, nil, nil, nil
	c.gb, c.b = nil, nil
	zeroKey(&c.key)
	c.prog = 0
	c.closed = true
}

// Group returns the curve group of the session.
func (c *Context) Group() curve.Curve { return c.group }

// LocalID returns the local identity label.
func (c *Context) LocalID() party.ID { return c.localID }

// PeerID returns the peer identity label.
func (c *Context) PeerID() party.ID { return c.peerID }

// SharedKey returns a view into the derived 32-byte key. The slice is
// borrowed: it stays valid until the next handshake on this context or
// until Close, which zeroizes it. Its contents are defined once the
// phase has reached KeyReady.
func (c *Context) SharedKey() []byte {
	return c.key[:]
}

// Phase returns the coarse handshake phase.
func (c *Context) Phase() Phase {
	switch {
	case c.failed:
		return PhaseFailed
	case c.prog&progConfirmed != 0:
		return PhaseConfirmed
	case c.prog&progS3AOk != 0:
		return PhaseS3AOk
	case c.prog&progS3ASent != 0:
		return PhaseS3ASent
	case c.prog&progKeyReady != 0:
		return PhaseKeyReady
	case c.prog&progS2Received != 0:
		return PhaseS2Received
	case c.prog&progS2Sent != 0:
		return PhaseS2Sent
	case c.prog&progS1Received != 0:
		return PhaseS1Received
	case c.prog&progS1Sent != 0:
		return PhaseS1Sent
	}
	return PhaseFresh
}

// usable gates every step operation: a closed or failed context
// rejects all work without side effects.
func (c *Context) usable(op Op) error {
	if c.closed {
		return &Error{Op: op, Err: ErrClosed}
	}
	if c.failed {
		return &Error{Op: op, Err: ErrSessionFailed}
	}
	return nil
}

// fail poisons the context and returns err unchanged.
func (c *Context) fail(err error) error {
	c.failed = true
	return err
}

// reset drops all handshake state so a new exchange can start on the
// same context. The shared secret and the identities survive.
func (c *Context) reset() {
	zeroScalar(c.x1)
	zeroScalar(c.x2)
	c.x1, c.x2 = nil, nil
	c.gx1, c.gx2, c.gx3, c.gx4 = nil, nil, nil, nil
	c.gb, c.b = nil, nil
	zeroKey(&c.key)
	c.prog = 0
}

// zeroScalar overwrites a secret scalar in place.
func zeroScalar(s curve.Scalar) {
	if s != nil {
		s.Set(s.Curve().NewScalar())
	}
}

func zeroKey(key *[KeySize]byte) {
	for i := range key {
		key[i] = 0
	}
}
