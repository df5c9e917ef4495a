package ecjpake

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/passware/ecjpake/pkg/hash"
)

// computeKey derives the joint secret K = (B − G·x4·(x2·s))·x2, which
// both parties can reach but which is inaccessible without the shared
// secret, and hashes its transcript encoding into the session key.
func (c *Context) computeKey() error {
	t := c.group.NewScalar().Set(c.x2).Mul(c.s)
	mask := t.Act(c.gx4)
	k := c.x2.Act(c.b.Sub(mask))
	zeroScalar(t)

	if k.IsIdentity() {
		return opErr(OpComputeKey, "joint secret is the identity")
	}
	enc, err := hash.EncodePoint(k)
	if err != nil {
		return &Error{Op: OpComputeKey, Err: err}
	}
	c.key = sha256.Sum256(enc)
	c.prog |= progKeyReady
	return nil
}

// Confirmation tag domain separators. The values are fixed for
// interoperability: peers must derive identical tags.
const (
	tagHashOfKey       = 0x03
	tagHashOfHashOfKey = 0x04
)

// hashOfKey returns Hk = SHA256(0x03 ∥ key).
func (c *Context) hashOfKey() [KeySize]byte {
	h := sha256.New()
	h.Write([]byte{tagHashOfKey})
	h.Write(c.key[:])
	var out [KeySize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// hashOfHashOfKey returns HHk = SHA256(0x04 ∥ Hk).
func (c *Context) hashOfHashOfKey() [KeySize]byte {
	hk := c.hashOfKey()
	h := sha256.New()
	h.Write([]byte{tagHashOfHashOfKey})
	h.Write(hk[:])
	var out [KeySize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveSessionKeys expands the shared key into length bytes of
// traffic key material with HKDF-SHA256. The shared key itself should
// not be used directly on the wire; expanding it per purpose keeps the
// confirmation tags and traffic keys independent. Available once the
// key is ready.
func (c *Context) DeriveSessionKeys(salt, info []byte, length int) ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.failed {
		return nil, ErrSessionFailed
	}
	if c.prog&progKeyReady == 0 {
		return nil, opErr(OpComputeKey, "shared key is not ready")
	}
	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(sha256.New, c.key[:], salt, info), out); err != nil {
		return nil, &Error{Op: OpComputeKey, Err: err}
	}
	return out, nil
}
