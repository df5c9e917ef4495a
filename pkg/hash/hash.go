// Package hash builds the SHA-256 transcripts that bind protocol
// values together: the Fiat-Shamir challenges of the zero-knowledge
// proofs and the final hashing of the joint secret point.
//
// Every variable-length field enters the transcript behind a 4-byte
// big-endian length prefix, and curve points enter through a point
// hasher. The default point hasher writes the length-prefixed affine
// coordinates; interoperating peers must agree on it. A process-wide
// replacement slot exists for deployments with a different point
// encoding; it must be installed before any session is opened, as its
// write is not synchronized.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"hash"

	"github.com/passware/ecjpake/pkg/math/curve"
	"github.com/passware/ecjpake/pkg/party"
)

// Size is the byte length of every digest produced by this package.
const Size = sha256.Size

// PointHasher appends a deterministic byte encoding of p to an
// in-progress transcript.
type PointHasher func(h *Hash, p curve.Point) error

// pointHasher is the process-wide slot; last writer wins.
var pointHasher PointHasher = writePointDefault

// SetPointHasher installs f as the point hasher used by all transcripts
// started afterwards. Passing nil restores the default.
func SetPointHasher(f PointHasher) {
	if f == nil {
		f = writePointDefault
	}
	pointHasher = f
}

// Hash is an in-progress SHA-256 transcript.
type Hash struct {
	h  hash.Hash
	hp PointHasher
}

// New starts an empty transcript using the currently installed point
// hasher.
func New() *Hash {
	return &Hash{h: sha256.New(), hp: pointHasher}
}

// WriteBytes appends data behind its 4-byte big-endian length.
func (h *Hash) WriteBytes(data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	h.h.Write(lenBuf[:])
	h.h.Write(data)
}

// WriteID appends a party identifier.
func (h *Hash) WriteID(id party.ID) {
	h.WriteBytes(id.Bytes())
}

// WritePoint appends a curve point through the point hasher. The
// identity has no affine encoding and is rejected.
func (h *Hash) WritePoint(p curve.Point) error {
	return h.hp(h, p)
}

// WriteRaw appends data without a length prefix. Point hashers use it
// to emit encodings that carry their own framing.
func (h *Hash) WriteRaw(data []byte) {
	h.h.Write(data)
}

// Sum returns the digest of everything written so far. The transcript
// stays usable afterwards.
func (h *Hash) Sum() []byte {
	return h.h.Sum(nil)
}

func writePointDefault(h *Hash, p curve.Point) error {
	enc, err := EncodePoint(p)
	if err != nil {
		return err
	}
	h.WriteRaw(enc)
	return nil
}

// EncodePoint returns the default transcript encoding of p: the
// fixed-width big-endian affine X and Y, each behind its 4-byte
// big-endian length. The same encoding feeds the hashing of the joint
// secret point into the shared key.
func EncodePoint(p curve.Point) ([]byte, error) {
	if p == nil || p.IsIdentity() {
		return nil, errors.New("hash: the identity has no affine encoding")
	}
	x, y := p.Coordinates()
	out := make([]byte, 0, 8+len(x)+len(y))
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(x)))
	out = append(out, lenBuf[:]...)
	out = append(out, x...)
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(y)))
	out = append(out, lenBuf[:]...)
	out = append(out, y...)
	return out, nil
}
