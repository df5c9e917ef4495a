// Package sch implements the Schnorr proof of knowledge of a discrete
// logarithm used by both protocol rounds, made non-interactive with
// the Fiat-Shamir transform over SHA-256.
//
// The challenge binds the generator, the commitment, the public value
// and the prover's identity. Binding the identity stops a peer from
// reflecting a proof back at its author: the same bytes hash to a
// different challenge under the other party's label.
package sch

import (
	"errors"
	"io"

	"github.com/cronokirby/saferith"

	"github.com/passware/ecjpake/pkg/hash"
	"github.com/passware/ecjpake/pkg/math/curve"
	"github.com/passware/ecjpake/pkg/math/sample"
	"github.com/passware/ecjpake/pkg/party"
)

// Proof is a non-interactive proof of knowledge of x such that
// X = G'·x for a stated generator G'.
type Proof struct {
	// Gr is the commitment V = G'·r for the ephemeral r.
	Gr curve.Point
	// B is the response b = (r - x·h) mod q.
	B curve.Scalar
}

// NewProof proves knowledge of witness for public = generator·witness,
// labelled with the prover's identity. The generator is either the
// group base or a derived round-2 generator; it must be a legal group
// element.
func NewProof(rand io.Reader, generator, public curve.Point, witness curve.Scalar, proverID party.ID) (*Proof, error) {
	if !curve.IsLegal(generator) || !curve.IsLegal(public) {
		return nil, errors.New("sch: generator and public value must be legal group elements")
	}
	if witness == nil || witness.IsZero() {
		return nil, errors.New("sch: witness is zero")
	}
	group := witness.Curve()

	r, err := sample.Scalar(rand, group)
	if err != nil {
		return nil, err
	}
	v := r.Act(generator)

	h, err := challenge(group, generator, v, public, proverID)
	if err != nil {
		return nil, err
	}

	xh := group.NewScalar().Set(witness).Mul(h)
	b := r.Sub(xh)
	return &Proof{Gr: v, B: b}, nil
}

// Verify checks the proof against the claimed generator, public value
// and prover identity. It enforces point legality on the public value
// and the commitment before any scalar multiplication, recomputes the
// challenge and accepts iff Gr == G'·b + X·h.
func (p *Proof) Verify(generator, public curve.Point, proverID party.ID) bool {
	if p == nil || p.Gr == nil || p.B == nil {
		return false
	}
	if !curve.IsLegal(generator) || !curve.IsLegal(public) || !curve.IsLegal(p.Gr) {
		return false
	}
	group := p.B.Curve()

	h, err := challenge(group, generator, p.Gr, public, proverID)
	if err != nil {
		return false
	}

	lhs := p.B.Act(generator).Add(h.Act(public))
	return p.Gr.Equal(lhs)
}

// challenge computes h = SHA256(G' ∥ V ∥ X ∥ id) mod q, with every
// point entering through the transcript point hasher and the identity
// behind its length prefix.
func challenge(group curve.Curve, generator, commitment, public curve.Point, proverID party.ID) (curve.Scalar, error) {
	h := hash.New()
	for _, pt := range []curve.Point{generator, commitment, public} {
		if err := h.WritePoint(pt); err != nil {
			return nil, err
		}
	}
	h.WriteID(proverID)
	digest := new(saferith.Nat).SetBytes(h.Sum())
	return group.NewScalar().SetNat(digest), nil
}
