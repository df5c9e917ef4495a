package ecjpake

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/passware/ecjpake/pkg/math/curve"
	"github.com/passware/ecjpake/pkg/zk/sch"
)

// Wire forms of the step payloads. The core operates on in-memory
// structures; these encodings exist for callers that want a ready-made
// framing, and for the message-driven handler in pkg/protocol.

type stepPartWire struct {
	Gx []byte `cbor:"gx"`
	Gr []byte `cbor:"gr"`
	B  []byte `cbor:"b"`
}

type step1Wire struct {
	P1 stepPartWire `cbor:"p1"`
	P2 stepPartWire `cbor:"p2"`
}

type step3Wire struct {
	Tag []byte `cbor:"tag"`
}

func encodePart(p *StepPart) (stepPartWire, error) {
	var w stepPartWire
	if p.Gx == nil || p.ZKP.Gr == nil || p.ZKP.B == nil {
		return w, errors.New("ecjpake: payload part is not populated")
	}
	var err error
	if w.Gx, err = p.Gx.MarshalBinary(); err != nil {
		return w, err
	}
	if w.Gr, err = p.ZKP.Gr.MarshalBinary(); err != nil {
		return w, err
	}
	if w.B, err = p.ZKP.B.MarshalBinary(); err != nil {
		return w, err
	}
	return w, nil
}

func decodePart(group curve.Curve, w *stepPartWire) (StepPart, error) {
	var p StepPart
	gx := group.NewPoint()
	if err := gx.UnmarshalBinary(w.Gx); err != nil {
		return p, err
	}
	gr := group.NewPoint()
	if err := gr.UnmarshalBinary(w.Gr); err != nil {
		return p, err
	}
	b := group.NewScalar()
	if err := b.UnmarshalBinary(w.B); err != nil {
		return p, err
	}
	return StepPart{Gx: gx, ZKP: sch.Proof{Gr: gr, B: b}}, nil
}

// MarshalBinary encodes the payload as CBOR.
func (s1 *Step1) MarshalBinary() ([]byte, error) {
	var w step1Wire
	var err error
	if w.P1, err = encodePart(&s1.P1); err != nil {
		return nil, fmt.Errorf("ecjpake: marshal step 1: %w", err)
	}
	if w.P2, err = encodePart(&s1.P2); err != nil {
		return nil, fmt.Errorf("ecjpake: marshal step 1: %w", err)
	}
	return cbor.Marshal(&w)
}

// UnmarshalBinary decodes a CBOR payload produced by MarshalBinary.
// The payload must have been initialized with NewStep1 so the curve
// group is known. Off-curve points are rejected here; the identity is
// accepted so that Step1Process can report it with the proper reason.
func (s1 *Step1) UnmarshalBinary(data []byte) error {
	if s1.group == nil {
		return errors.New("ecjpake: payload is not initialized")
	}
	var w step1Wire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("ecjpake: unmarshal step 1: %w", err)
	}
	p1, err := decodePart(s1.group, &w.P1)
	if err != nil {
		return fmt.Errorf("ecjpake: unmarshal step 1: %w", err)
	}
	p2, err := decodePart(s1.group, &w.P2)
	if err != nil {
		return fmt.Errorf("ecjpake: unmarshal step 1: %w", err)
	}
	s1.P1, s1.P2 = p1, p2
	return nil
}

// MarshalBinary encodes the payload as CBOR.
func (s2 *Step2) MarshalBinary() ([]byte, error) {
	w, err := encodePart(&s2.StepPart)
	if err != nil {
		return nil, fmt.Errorf("ecjpake: marshal step 2: %w", err)
	}
	return cbor.Marshal(&w)
}

// UnmarshalBinary decodes a CBOR payload produced by MarshalBinary.
func (s2 *Step2) UnmarshalBinary(data []byte) error {
	if s2.group == nil {
		return errors.New("ecjpake: payload is not initialized")
	}
	var w stepPartWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("ecjpake: unmarshal step 2: %w", err)
	}
	part, err := decodePart(s2.group, &w)
	if err != nil {
		return fmt.Errorf("ecjpake: unmarshal step 2: %w", err)
	}
	s2.StepPart = part
	return nil
}

// MarshalBinary encodes the confirmation tag as CBOR.
func (s *Step3A) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(&step3Wire{Tag: s.HHK[:]})
}

// UnmarshalBinary decodes a CBOR confirmation tag.
func (s *Step3A) UnmarshalBinary(data []byte) error {
	var w step3Wire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("ecjpake: unmarshal step 3A: %w", err)
	}
	if len(w.Tag) != KeySize {
		return fmt.Errorf("ecjpake: step 3A tag must be %d bytes, got %d", KeySize, len(w.Tag))
	}
	copy(s.HHK[:], w.Tag)
	return nil
}

// MarshalBinary encodes the confirmation tag as CBOR.
func (s *Step3B) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(&step3Wire{Tag: s.HK[:]})
}

// UnmarshalBinary decodes a CBOR confirmation tag.
func (s *Step3B) UnmarshalBinary(data []byte) error {
	var w step3Wire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("ecjpake: unmarshal step 3B: %w", err)
	}
	if len(w.Tag) != KeySize {
		return fmt.Errorf("ecjpake: step 3B tag must be %d bytes, got %d", KeySize, len(w.Tag))
	}
	copy(s.HK[:], w.Tag)
	return nil
}
