// Package test provides an in-memory transport for exercising complete
// handshakes between two in-process parties.
package test

import (
	"github.com/passware/ecjpake/pkg/party"
	"github.com/passware/ecjpake/pkg/protocol"
)

// queueSize comfortably exceeds the number of messages one side sends
// in a handshake, so delivery never blocks a handler.
const queueSize = 8

// Network is a reliable, ordered, in-memory message fabric between a
// fixed set of parties.
type Network struct {
	queues map[party.ID]chan *protocol.Message
}

// NewNetwork creates a network delivering to the given parties.
func NewNetwork(ids ...party.ID) *Network {
	n := &Network{queues: make(map[party.ID]chan *protocol.Message, len(ids))}
	for _, id := range ids {
		n.queues[id] = make(chan *protocol.Message, queueSize)
	}
	return n
}

// Send queues msg for its recipient. Messages to unknown parties are
// dropped.
func (n *Network) Send(msg *protocol.Message) {
	if q, ok := n.queues[msg.To]; ok {
		q <- msg
	}
}

// Next returns the delivery queue of a party.
func (n *Network) Next(id party.ID) <-chan *protocol.Message {
	return n.queues[id]
}

// HandlerLoop runs a handler against the network until the handshake
// finishes: outgoing messages are forwarded and incoming ones are
// delivered to Accept.
func HandlerLoop(id party.ID, h *protocol.Handler, n *Network) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range h.Listen() {
			n.Send(msg)
		}
	}()
	for {
		select {
		case msg := <-n.Next(id):
			h.Accept(msg)
		case <-done:
			return
		}
	}
}
