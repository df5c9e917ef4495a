package ecjpake

import "crypto/subtle"

// Step3A carries HHk, the hash of the hash of the derived key. The
// initiating side of the confirmation sends it first.
type Step3A struct {
	HHK [KeySize]byte
}

// Step3B carries Hk, the hash of the derived key, answering a
// verified Step3A.
type Step3B struct {
	HK [KeySize]byte
}

// NewStep3A initializes a confirmation payload.
func NewStep3A() *Step3A { return &Step3A{} }

// NewStep3B initializes a confirmation payload.
func NewStep3B() *Step3B { return &Step3B{} }

// Release zeroizes the tag.
func (s *Step3A) Release() { s.HHK = [KeySize]byte{} }

// Release zeroizes the tag.
func (s *Step3B) Release() { s.HK = [KeySize]byte{} }

// Step3AGenerate emits the local HHk tag. The shared key must be
// ready.
func (c *Context) Step3AGenerate(s *Step3A) error {
	if err := c.usable(OpStep3AGenerate); err != nil {
		return err
	}
	if c.prog&progKeyReady == 0 {
		return opErr(OpStep3AGenerate, "shared key is not ready")
	}
	s.HHK = c.hashOfHashOfKey()
	c.prog |= progS3ASent
	return nil
}

// Step3AProcess compares the received HHk against the locally derived
// value in constant time over the full tag. A mismatch means the two
// sides hold different keys, which is how a wrong password first
// becomes observable.
func (c *Context) Step3AProcess(received *Step3A) error {
	if err := c.usable(OpStep3AProcess); err != nil {
		return err
	}
	if c.prog&progKeyReady == 0 {
		return opErr(OpStep3AProcess, "shared key is not ready")
	}
	want := c.hashOfHashOfKey()
	if subtle.ConstantTimeCompare(want[:], received.HHK[:]) != 1 {
		return c.fail(&Error{Op: OpStep3AProcess, Reason: ReasonHashOfHashOfKeyMismatch})
	}
	c.prog |= progS3AOk
	return nil
}

// Step3BGenerate emits the local Hk tag.
func (c *Context) Step3BGenerate(s *Step3B) error {
	if err := c.usable(OpStep3BGenerate); err != nil {
		return err
	}
	if c.prog&progKeyReady == 0 {
		return opErr(OpStep3BGenerate, "shared key is not ready")
	}
	s.HK = c.hashOfKey()
	return nil
}

// Step3BProcess compares the received Hk in constant time and, on
// success, marks the handshake confirmed.
func (c *Context) Step3BProcess(received *Step3B) error {
	if err := c.usable(OpStep3BProcess); err != nil {
		return err
	}
	if c.prog&progKeyReady == 0 {
		return opErr(OpStep3BProcess, "shared key is not ready")
	}
	want := c.hashOfKey()
	if subtle.ConstantTimeCompare(want[:], received.HK[:]) != 1 {
		return c.fail(&Error{Op: OpStep3BProcess, Reason: ReasonHashOfKeyMismatch})
	}
	c.prog |= progConfirmed
	return nil
}
