package ecjpake

import (
	"crypto/rand"

	"github.com/passware/ecjpake/pkg/math/curve"
	"github.com/passware/ecjpake/pkg/zk/sch"
)

// Step2 is the round-2 payload: the single element
// G·((x1+x3+x4)·x2·s) with the proof for the witness x2·s under the
// derived round-2 generator.
type Step2 struct {
	StepPart

	group curve.Curve
}

// NewStep2 initializes a round-2 payload for use with ctx.
func NewStep2(ctx *Context) *Step2 {
	return &Step2{group: ctx.group}
}

// Release clears the payload.
func (s2 *Step2) Release() {
	s2.StepPart = StepPart{}
}

// Step2Generate forms the round-2 generator G_A = G·(x1+x3+x4) by
// point addition, computes A = G_A·(x2·s) and proves knowledge of the
// witness under G_A. Round 1 must be complete in both directions.
func (c *Context) Step2Generate(s2 *Step2) error {
	if err := c.usable(OpStep2Generate); err != nil {
		return err
	}
	if s2 == nil || s2.group != c.group {
		return opErr(OpStep2Generate, "payload was not initialized against this context")
	}
	if c.prog&progS1Sent == 0 || c.prog&progS1Received == 0 {
		return opErr(OpStep2Generate, "round 1 is not complete")
	}

	ga := c.gx1.Add(c.gx3).Add(c.gx4)
	if !curve.IsLegal(ga) {
		return c.fail(&Error{Op: OpStep2Generate, Reason: ReasonGIsNotLegal})
	}

	t := c.group.NewScalar().Set(c.x2).Mul(c.s)
	if t.IsZero() {
		return c.fail(opErr(OpStep2Generate, "round-2 witness is zero"))
	}
	a := t.Act(ga)

	zkp, err := sch.NewProof(rand.Reader, ga, a, t, c.localID)
	zeroScalar(t)
	if err != nil {
		return c.fail(&Error{Op: OpStep2Generate, Err: err})
	}

	s2.StepPart = StepPart{Gx: c.group.NewPoint().Set(a), ZKP: *zkp}
	c.prog |= progS2Sent
	return nil
}

// Step2Process reconstructs the generator the peer proved under,
// G_B = G·(x3+x1+x2), validates it together with the received element,
// verifies the proof under the peer's identity, and derives the shared
// key. Nothing is stored unless every check passes.
func (c *Context) Step2Process(received *Step2) error {
	if err := c.usable(OpStep2Process); err != nil {
		return err
	}
	if c.prog&progS1Sent == 0 || c.prog&progS1Received == 0 {
		return opErr(OpStep2Process, "round 1 is not complete")
	}
	if c.prog&progS2Received != 0 {
		return opErr(OpStep2Process, "round 2 was already processed")
	}
	if received == nil || received.Gx == nil {
		return c.fail(opErr(OpStep2Process, "incomplete payload"))
	}

	gb := c.gx3.Add(c.gx1).Add(c.gx2)
	if !curve.IsLegal(gb) {
		return c.fail(&Error{Op: OpStep2Process, Reason: ReasonGIsNotLegal})
	}
	if !received.ZKP.Verify(gb, received.Gx, c.peerID) {
		return c.fail(&Error{Op: OpStep2Process, Reason: ReasonVerifyX4SFailed})
	}

	c.gb = gb
	c.b = c.group.NewPoint().Set(received.Gx)
	c.prog |= progS2Received

	if err := c.computeKey(); err != nil {
		return c.fail(err)
	}
	return nil
}
