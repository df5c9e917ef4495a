// Package sample draws uniformly distributed scalars for a curve group.
package sample

import (
	"fmt"
	"io"
	"math/big"

	"github.com/cronokirby/saferith"

	"github.com/passware/ecjpake/pkg/math/curve"
)

// maxIterations bounds the rejection sampling loop. A conforming
// reader fails to produce a value below the order with probability
// about 2^-32 per draw on P-256 and far less on the other supported
// curves, so hitting the bound indicates a broken randomness source.
const maxIterations = 255

// Scalar returns a uniformly random scalar in [1, q-1], where q is the
// order of the group. Rejection sampling keeps the distribution
// uniform instead of folding the draw through a modular reduction.
func Scalar(rand io.Reader, group curve.Curve) (curve.Scalar, error) {
	q := new(big.Int).SetBytes(group.Order().Bytes())
	buf := make([]byte, group.ScalarBytes())
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err != nil {
			return nil, fmt.Errorf("sample: reading randomness: %w", err)
		}
		k := new(big.Int).SetBytes(buf)
		if k.Sign() == 0 || k.Cmp(q) >= 0 {
			continue
		}
		return group.NewScalar().SetNat(new(saferith.Nat).SetBytes(buf)), nil
	}
	return nil, fmt.Errorf("sample: no scalar below the group order after %d draws", maxIterations)
}
