package ecjpake

import (
	"crypto/rand"

	"github.com/passware/ecjpake/pkg/math/curve"
	"github.com/passware/ecjpake/pkg/math/sample"
	"github.com/passware/ecjpake/pkg/zk/sch"
)

// StepPart is one public element together with the proof of knowledge
// of its discrete log: G·x with ZKP(x) in round 1, the round-2 element
// with ZKP(x2·s) in round 2.
type StepPart struct {
	Gx  curve.Point
	ZKP sch.Proof
}

// Step1 is the round-1 payload: both local publics with their proofs.
// A payload belongs to the context it was initialized against; it can
// be reused across successive handshakes without reinitialization, and
// Release zeroizes it.
type Step1 struct {
	P1 StepPart
	P2 StepPart

	group curve.Curve
}

// NewStep1 initializes a round-1 payload for use with ctx.
func NewStep1(ctx *Context) *Step1 {
	return &Step1{group: ctx.group}
}

// Release clears the payload. The payload holds only public values,
// but callers handling hostile transcripts should not leak them past
// the handshake either.
func (s1 *Step1) Release() {
	s1.P1 = StepPart{}
	s1.P2 = StepPart{}
}

// Step1Generate draws the fresh round-1 secrets x1, x2 ∈ [1, q-1],
// computes their publics and proofs, and fills s1 for transmission.
//
// Calling it again on the same context begins a new handshake: peer
// material and any derived key from the previous exchange are cleared
// before the new secrets are drawn.
func (c *Context) Step1Generate(s1 *Step1) error {
	if err := c.usable(OpStep1Generate); err != nil {
		return err
	}
	if s1 == nil || s1.group != c.group {
		return opErr(OpStep1Generate, "payload was not initialized against this context")
	}
	if c.prog != 0 {
		c.reset()
	}

	x1, err := sample.Scalar(rand.Reader, c.group)
	if err != nil {
		return c.fail(&Error{Op: OpStep1Generate, Err: err})
	}
	x2, err := sample.Scalar(rand.Reader, c.group)
	if err != nil {
		return c.fail(&Error{Op: OpStep1Generate, Err: err})
	}
	gx1 := x1.ActOnBase()
	gx2 := x2.ActOnBase()

	base := c.group.NewBasePoint()
	zkp1, err := sch.NewProof(rand.Reader, base, gx1, x1, c.localID)
	if err != nil {
		return c.fail(&Error{Op: OpStep1Generate, Err: err})
	}
	zkp2, err := sch.NewProof(rand.Reader, base, gx2, x2, c.localID)
	if err != nil {
		return c.fail(&Error{Op: OpStep1Generate, Err: err})
	}

	c.x1, c.x2 = x1, x2
	c.gx1, c.gx2 = gx1, gx2

	s1.P1 = StepPart{Gx: c.group.NewPoint().Set(gx1), ZKP: *zkp1}
	s1.P2 = StepPart{Gx: c.group.NewPoint().Set(gx2), ZKP: *zkp2}

	c.prog |= progS1Sent
	return nil
}

// Step1Process validates the peer's round-1 payload and installs the
// peer publics G·x3 and G·x4. Both elements must be legal group
// points, and both proofs must verify against the group base under the
// peer's identity. Nothing is stored unless every check passes.
func (c *Context) Step1Process(received *Step1) error {
	if err := c.usable(OpStep1Process); err != nil {
		return err
	}
	if c.prog&progS1Received != 0 {
		return opErr(OpStep1Process, "round 1 was already processed")
	}
	if received == nil || received.P1.Gx == nil || received.P2.Gx == nil {
		return c.fail(opErr(OpStep1Process, "incomplete payload"))
	}

	gx3 := received.P1.Gx
	gx4 := received.P2.Gx
	if !curve.IsLegal(gx3) {
		return c.fail(&Error{Op: OpStep1Process, Reason: ReasonGToTheX3IsNotLegal})
	}
	if !curve.IsLegal(gx4) {
		return c.fail(&Error{Op: OpStep1Process, Reason: ReasonGToTheX4IsNotLegal})
	}

	base := c.group.NewBasePoint()
	if !received.P1.ZKP.Verify(base, gx3, c.peerID) {
		return c.fail(&Error{Op: OpStep1Process, Reason: ReasonVerifyX3Failed})
	}
	if !received.P2.ZKP.Verify(base, gx4, c.peerID) {
		return c.fail(&Error{Op: OpStep1Process, Reason: ReasonVerifyX4Failed})
	}

	c.gx3 = c.group.NewPoint().Set(gx3)
	c.gx4 = c.group.NewPoint().Set(gx4)
	c.prog |= progS1Received
	return nil
}
