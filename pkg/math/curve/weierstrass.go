package curve

import (
	"crypto/elliptic"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// weierstrass adapts a short Weierstrass curve in affine coordinates.
// All supported curves have cofactor 1, so the identity is the only
// small-order element to guard against.
type weierstrass struct {
	ec   elliptic.Curve
	name string
	q    *saferith.Modulus
}

var (
	p256Curve = newWeierstrass(elliptic.P256(), "P-256")
	p384Curve = newWeierstrass(elliptic.P384(), "P-384")
	k256Curve = newWeierstrass(secp256k1.S256(), "secp256k1")
)

// P256 returns the NIST P-256 group.
func P256() Curve { return p256Curve }

// P384 returns the NIST P-384 group.
func P384() Curve { return p384Curve }

// Secp256k1 returns the secp256k1 group.
func Secp256k1() Curve { return k256Curve }

// ByName resolves a curve from its canonical name.
func ByName(name string) (Curve, error) {
	switch name {
	case p256Curve.name:
		return p256Curve, nil
	case p384Curve.name:
		return p384Curve, nil
	case k256Curve.name:
		return k256Curve, nil
	}
	return nil, fmt.Errorf("curve: unknown curve %q", name)
}

func newWeierstrass(ec elliptic.Curve, name string) *weierstrass {
	return &weierstrass{
		ec:   ec,
		name: name,
		q:    saferith.ModulusFromBytes(ec.Params().N.Bytes()),
	}
}

func (w *weierstrass) Name() string             { return w.name }
func (w *weierstrass) Order() *saferith.Modulus { return w.q }

func (w *weierstrass) ScalarBytes() int {
	return (w.ec.Params().N.BitLen() + 7) / 8
}

func (w *weierstrass) CoordinateBytes() int {
	return (w.ec.Params().BitSize + 7) / 8
}

func (w *weierstrass) NewPoint() Point {
	return &point{c: w}
}

func (w *weierstrass) NewBasePoint() Point {
	params := w.ec.Params()
	return &point{
		c: w,
		x: new(big.Int).Set(params.Gx),
		y: new(big.Int).Set(params.Gy),
	}
}

func (w *weierstrass) NewScalar() Scalar {
	return &scalar{c: w, n: new(saferith.Nat).SetUint64(0)}
}

// scalar is an integer modulo the group order, kept reduced at all
// times.
type scalar struct {
	c *weierstrass
	n *saferith.Nat
}

func (s *scalar) Curve() Curve { return s.c }

func (s *scalar) other(t Scalar) *scalar {
	o, ok := t.(*scalar)
	if !ok || o.c != s.c {
		panic("curve: scalar from a different group")
	}
	return o
}

func (s *scalar) Add(t Scalar) Scalar {
	s.n.ModAdd(s.n, s.other(t).n, s.c.q)
	return s
}

func (s *scalar) Sub(t Scalar) Scalar {
	neg := new(saferith.Nat).ModNeg(s.other(t).n, s.c.q)
	s.n.ModAdd(s.n, neg, s.c.q)
	return s
}

func (s *scalar) Mul(t Scalar) Scalar {
	s.n.ModMul(s.n, s.other(t).n, s.c.q)
	return s
}

func (s *scalar) Negate() Scalar {
	s.n.ModNeg(s.n, s.c.q)
	return s
}

func (s *scalar) Invert() Scalar {
	s.n.ModInverse(s.n, s.c.q)
	return s
}

func (s *scalar) Set(t Scalar) Scalar {
	s.n.SetBytes(s.other(t).n.Bytes())
	s.n.Mod(s.n, s.c.q)
	return s
}

func (s *scalar) SetNat(v *saferith.Nat) Scalar {
	s.n.Mod(v, s.c.q)
	return s
}

func (s *scalar) Equal(t Scalar) bool {
	return subtle.ConstantTimeCompare(s.Bytes(), s.other(t).Bytes()) == 1
}

func (s *scalar) IsZero() bool {
	zero := make([]byte, s.c.ScalarBytes())
	return subtle.ConstantTimeCompare(s.Bytes(), zero) == 1
}

func (s *scalar) Act(p Point) Point {
	q, ok := p.(*point)
	if !ok || q.c != s.c {
		panic("curve: point from a different group")
	}
	if q.isIdentity() || s.IsZero() {
		return &point{c: s.c}
	}
	x, y := s.c.ec.ScalarMult(q.x, q.y, s.Bytes())
	return newNormalized(s.c, x, y)
}

func (s *scalar) ActOnBase() Point {
	if s.IsZero() {
		return &point{c: s.c}
	}
	x, y := s.c.ec.ScalarBaseMult(s.Bytes())
	return newNormalized(s.c, x, y)
}

func (s *scalar) Bytes() []byte {
	out := make([]byte, s.c.ScalarBytes())
	b := s.n.Bytes()
	if len(b) > len(out) {
		b = b[len(b)-len(out):]
	}
	copy(out[len(out)-len(b):], b)
	return out
}

func (s *scalar) MarshalBinary() ([]byte, error) {
	return s.Bytes(), nil
}

func (s *scalar) UnmarshalBinary(data []byte) error {
	if len(data) != s.c.ScalarBytes() {
		return fmt.Errorf("curve: scalar must be %d bytes, got %d", s.c.ScalarBytes(), len(data))
	}
	s.n.SetBytes(data)
	s.n.Mod(s.n, s.c.q)
	return nil
}

// point is an affine group element; x == nil marks the identity.
type point struct {
	c    *weierstrass
	x, y *big.Int
}

// newNormalized folds the (0, 0) encoding of the point at infinity,
// returned by the affine arithmetic, into the nil representation.
func newNormalized(c *weierstrass, x, y *big.Int) *point {
	if x == nil || (x.Sign() == 0 && y.Sign() == 0) {
		return &point{c: c}
	}
	return &point{c: c, x: x, y: y}
}

func (p *point) Curve() Curve { return p.c }

func (p *point) isIdentity() bool { return p.x == nil }

func (p *point) other(q Point) *point {
	o, ok := q.(*point)
	if !ok || o.c != p.c {
		panic("curve: point from a different group")
	}
	return o
}

func (p *point) Add(q Point) Point {
	o := p.other(q)
	if p.isIdentity() {
		return (&point{c: p.c}).Set(o)
	}
	if o.isIdentity() {
		return (&point{c: p.c}).Set(p)
	}
	if p.x.Cmp(o.x) == 0 && p.y.Cmp(o.y) != 0 {
		// p + (-p)
		return &point{c: p.c}
	}
	x, y := p.c.ec.Add(p.x, p.y, o.x, o.y)
	return newNormalized(p.c, x, y)
}

func (p *point) Sub(q Point) Point {
	return p.Add(p.other(q).Negate())
}

func (p *point) Negate() Point {
	if p.isIdentity() {
		return &point{c: p.c}
	}
	negY := new(big.Int).Neg(p.y)
	negY.Mod(negY, p.c.ec.Params().P)
	return &point{c: p.c, x: new(big.Int).Set(p.x), y: negY}
}

func (p *point) Set(q Point) Point {
	o := p.other(q)
	if o.isIdentity() {
		p.x, p.y = nil, nil
		return p
	}
	p.x = new(big.Int).Set(o.x)
	p.y = new(big.Int).Set(o.y)
	return p
}

func (p *point) Equal(q Point) bool {
	o := p.other(q)
	if p.isIdentity() || o.isIdentity() {
		return p.isIdentity() && o.isIdentity()
	}
	return p.x.Cmp(o.x) == 0 && p.y.Cmp(o.y) == 0
}

func (p *point) IsIdentity() bool { return p.isIdentity() }

func (p *point) IsOnCurve() bool {
	if p.isIdentity() {
		return false
	}
	return p.c.ec.IsOnCurve(p.x, p.y)
}

func (p *point) Coordinates() (x, y []byte) {
	if p.isIdentity() {
		return nil, nil
	}
	cb := p.c.CoordinateBytes()
	x = make([]byte, cb)
	y = make([]byte, cb)
	p.x.FillBytes(x)
	p.y.FillBytes(y)
	return x, y
}

const (
	prefixIdentity     = 0x00
	prefixUncompressed = 0x04
)

func (p *point) MarshalBinary() ([]byte, error) {
	if p.isIdentity() {
		return []byte{prefixIdentity}, nil
	}
	x, y := p.Coordinates()
	out := make([]byte, 0, 1+2*p.c.CoordinateBytes())
	out = append(out, prefixUncompressed)
	out = append(out, x...)
	out = append(out, y...)
	return out, nil
}

func (p *point) UnmarshalBinary(data []byte) error {
	if len(data) == 1 && data[0] == prefixIdentity {
		p.x, p.y = nil, nil
		return nil
	}
	cb := p.c.CoordinateBytes()
	if len(data) != 1+2*cb || data[0] != prefixUncompressed {
		return errors.New("curve: malformed point encoding")
	}
	x := new(big.Int).SetBytes(data[1 : 1+cb])
	y := new(big.Int).SetBytes(data[1+cb:])
	if !p.c.ec.IsOnCurve(x, y) {
		return errors.New("curve: point is not on the curve")
	}
	p.x, p.y = x, y
	return nil
}
