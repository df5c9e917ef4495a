// Package curve provides the elliptic curve group abstraction used by
// the protocol core. A Curve bundles a prime-order group together with
// its fixed generator; Scalar and Point values always belong to exactly
// one Curve and must not be mixed across groups.
//
// Only cofactor-1 prime-order curves are supported. For these, a point
// that is on the curve and is not the identity element necessarily has
// order q, which is what the protocol's legality checks rely on.
package curve

import "github.com/cronokirby/saferith"

// Curve represents a prime-order elliptic curve group with a fixed
// generator.
type Curve interface {
	// Name returns the canonical name of the curve ("P-256", ...).
	Name() string
	// Order returns the group order q as a modulus for scalar
	// arithmetic.
	Order() *saferith.Modulus
	// NewPoint returns the identity element.
	NewPoint() Point
	// NewBasePoint returns the fixed generator G.
	NewBasePoint() Point
	// NewScalar returns the zero scalar.
	NewScalar() Scalar
	// ScalarBytes returns the byte length of the fixed-width scalar
	// encoding.
	ScalarBytes() int
	// CoordinateBytes returns the byte length of one fixed-width
	// affine coordinate.
	CoordinateBytes() int
}

// Scalar is an integer modulo the group order q. Arithmetic methods
// modify the receiver and return it, so calls can be chained; the
// arguments are never modified.
type Scalar interface {
	Curve() Curve
	Add(Scalar) Scalar
	Sub(Scalar) Scalar
	Mul(Scalar) Scalar
	Negate() Scalar
	Invert() Scalar
	Set(Scalar) Scalar
	// SetNat sets the scalar to v mod q.
	SetNat(v *saferith.Nat) Scalar
	Equal(Scalar) bool
	IsZero() bool
	// Act returns the new point s·P. The receiver and P are unchanged.
	Act(P Point) Point
	// ActOnBase returns the new point s·G.
	ActOnBase() Point
	// Bytes returns the fixed-width big-endian encoding.
	Bytes() []byte
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// Point is a group element. Operations return new points; the receiver
// and arguments are never modified, except by Set and UnmarshalBinary.
type Point interface {
	Curve() Curve
	Add(Point) Point
	Sub(Point) Point
	Negate() Point
	Set(Point) Point
	Equal(Point) bool
	IsIdentity() bool
	// IsOnCurve reports whether the point satisfies the curve
	// equation. The identity is not considered on the curve.
	IsOnCurve() bool
	// Coordinates returns the fixed-width big-endian affine
	// coordinates, or (nil, nil) for the identity.
	Coordinates() (x, y []byte)
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// IsLegal reports whether p may take part in the protocol: it must be a
// group element on the curve and must not be the identity. Every point
// received from a peer has to pass this check before it is used in any
// scalar multiplication.
func IsLegal(p Point) bool {
	return p != nil && !p.IsIdentity() && p.IsOnCurve()
}
