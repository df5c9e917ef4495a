// Package protocol drives a full EC-J-PAKE handshake over an abstract
// message channel. The Handler owns a session context, emits outgoing
// messages on Listen and consumes peer messages through Accept; the
// caller supplies the transport. Both parties run the symmetric rounds
// 1 and 2; the initiator opens the confirmation with STEP3A and the
// responder answers with STEP3B.
package protocol

import (
	"errors"
	"fmt"
	"sync"

	"github.com/passware/ecjpake/pkg/party"
	"github.com/passware/ecjpake/protocols/ecjpake"
)

// outBuffer is sized for the most messages one side ever emits in a
// handshake (STEP1, STEP2, confirmation, abort).
const outBuffer = 4

// Handler executes one handshake on top of a session context. It is
// safe for concurrent use of Accept and Result; the context itself is
// only touched under the handler's lock.
type Handler struct {
	mtx       sync.Mutex
	ctx       *ecjpake.Context
	initiator bool
	confirm   bool

	s1  *ecjpake.Step1
	s2  *ecjpake.Step2
	out chan *Message

	err  error
	done bool
}

// NewHandler starts a handshake on ctx and queues the outgoing STEP1.
// The initiator side drives the key confirmation; when confirm is
// false both sides finish as soon as the key is derived.
func NewHandler(ctx *ecjpake.Context, initiator, confirm bool) (*Handler, error) {
	h := &Handler{
		ctx:       ctx,
		initiator: initiator,
		confirm:   confirm,
		s1:        ecjpake.NewStep1(ctx),
		s2:        ecjpake.NewStep2(ctx),
		out:       make(chan *Message, outBuffer),
	}
	if err := ctx.Step1Generate(h.s1); err != nil {
		return nil, fmt.Errorf("protocol: starting handshake: %w", err)
	}
	if err := h.send(Step1, h.s1); err != nil {
		return nil, err
	}
	return h, nil
}

// Listen returns the channel of outgoing messages. It is closed when
// the handshake completes or aborts.
func (h *Handler) Listen() <-chan *Message {
	return h.out
}

// Result returns the agreed 32-byte key once the handshake has
// finished, or the error that ended it.
func (h *Handler) Result() ([]byte, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if !h.done {
		return nil, errors.New("protocol: handshake is not finished")
	}
	if h.err != nil {
		return nil, h.err
	}
	key := make([]byte, ecjpake.KeySize)
	copy(key, h.ctx.SharedKey())
	return key, nil
}

// CanAccept reports whether msg belongs to this handshake execution.
func (h *Handler) CanAccept(msg *Message) bool {
	if msg == nil || msg.Step == StepNone {
		return false
	}
	if msg.From != h.ctx.PeerID() || msg.To != h.ctx.LocalID() {
		return false
	}
	return true
}

// Accept processes a peer message and advances the handshake. Messages
// that fail CanAccept are dropped silently; a protocol failure aborts
// the handshake, notifies the peer and closes the Listen channel.
func (h *Handler) Accept(msg *Message) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.done || !h.CanAccept(msg) {
		return
	}
	if err := h.handle(msg); err != nil {
		h.abort(err)
	}
}

func (h *Handler) handle(msg *Message) error {
	switch msg.Step {
	case Step1:
		received := ecjpake.NewStep1(h.ctx)
		if err := received.UnmarshalBinary(msg.Data); err != nil {
			return err
		}
		if err := h.ctx.Step1Process(received); err != nil {
			return err
		}
		if err := h.ctx.Step2Generate(h.s2); err != nil {
			return err
		}
		return h.send(Step2, h.s2)

	case Step2:
		received := ecjpake.NewStep2(h.ctx)
		if err := received.UnmarshalBinary(msg.Data); err != nil {
			return err
		}
		if err := h.ctx.Step2Process(received); err != nil {
			return err
		}
		if !h.confirm {
			h.finish(nil)
			return nil
		}
		if h.initiator {
			s3a := ecjpake.NewStep3A()
			if err := h.ctx.Step3AGenerate(s3a); err != nil {
				return err
			}
			return h.send(Step3A, s3a)
		}
		return nil

	case Step3A:
		if h.initiator || !h.confirm {
			return errors.New("protocol: unexpected STEP3A")
		}
		received := ecjpake.NewStep3A()
		if err := received.UnmarshalBinary(msg.Data); err != nil {
			return err
		}
		if err := h.ctx.Step3AProcess(received); err != nil {
			return err
		}
		s3b := ecjpake.NewStep3B()
		if err := h.ctx.Step3BGenerate(s3b); err != nil {
			return err
		}
		if err := h.send(Step3B, s3b); err != nil {
			return err
		}
		h.finish(nil)
		return nil

	case Step3B:
		if !h.initiator || !h.confirm {
			return errors.New("protocol: unexpected STEP3B")
		}
		received := ecjpake.NewStep3B()
		if err := received.UnmarshalBinary(msg.Data); err != nil {
			return err
		}
		if err := h.ctx.Step3BProcess(received); err != nil {
			return err
		}
		h.finish(nil)
		return nil

	case StepAbort:
		h.finish(fmt.Errorf("protocol: aborted by peer: %s", msg.Data))
		return nil
	}
	return fmt.Errorf("protocol: unknown step %d", msg.Step)
}

type marshaler interface {
	MarshalBinary() ([]byte, error)
}

func (h *Handler) send(step Step, payload marshaler) error {
	data, err := payload.MarshalBinary()
	if err != nil {
		return err
	}
	h.out <- &Message{
		From: h.ctx.LocalID(),
		To:   h.ctx.PeerID(),
		Step: step,
		Data: data,
	}
	return nil
}

// abort records the failure, tells the peer and closes the channel.
func (h *Handler) abort(err error) {
	select {
	case h.out <- &Message{
		From: h.ctx.LocalID(),
		To:   h.ctx.PeerID(),
		Step: StepAbort,
		Data: []byte(err.Error()),
	}:
	default:
	}
	h.finish(err)
}

func (h *Handler) finish(err error) {
	if h.done {
		return
	}
	h.err = err
	h.done = true
	close(h.out)
}

// Stop aborts a handshake that is still in flight.
func (h *Handler) Stop() {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if !h.done {
		h.abort(errors.New("protocol: stopped by caller"))
	}
}

// PartyIDs returns the two identities of the handshake, local first.
func (h *Handler) PartyIDs() (local, peer party.ID) {
	return h.ctx.LocalID(), h.ctx.PeerID()
}
