package protocol

import "github.com/passware/ecjpake/pkg/party"

// Step tags the payload a message carries.
type Step uint8

const (
	StepNone Step = iota
	Step1
	Step2
	Step3A
	Step3B
	// StepAbort tells the peer the sender gave up; Data holds the
	// reason text, never secret material.
	StepAbort
)

func (s Step) String() string {
	switch s {
	case Step1:
		return "STEP1"
	case Step2:
		return "STEP2"
	case Step3A:
		return "STEP3A"
	case Step3B:
		return "STEP3B"
	case StepAbort:
		return "ABORT"
	}
	return "NONE"
}

// Message is one handshake message between the two parties. Data is
// the CBOR encoding of the step payload.
type Message struct {
	From party.ID
	To   party.ID
	Step Step
	Data []byte
}
