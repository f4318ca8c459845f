package wire

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned for packets that cannot carry a message.
var ErrMalformed = errors.New("malformed packet")

// Message is one control message: an address plus scalar arguments.
type Message struct {
	Address string
	Args    []any
}

// RGBA is an OSC color argument ('r'), packed as 0xRRGGBBAA.
type RGBA uint32

// NewMessage builds a message.
func NewMessage(address string, args ...any) Message {
	return Message{Address: address, Args: args}
}

// Validate checks the address shape.
func (m *Message) Validate() error {
	if m.Address == "" {
		return fmt.Errorf("%w: empty address", ErrMalformed)
	}
	if !strings.HasPrefix(m.Address, "/") {
		return fmt.Errorf("%w: address %q must start with '/'", ErrMalformed, m.Address)
	}
	return nil
}

// Packet is the unit carried by one datagram or websocket binary frame. It
// holds a single message or the flattened contents of a bundle.
type Packet struct {
	Address string
	Args    []any
	Bundle  []Message
}

// NewBundle builds a packet from messages.
func NewBundle(msgs ...Message) *Packet {
	if len(msgs) == 1 {
		return &Packet{Address: msgs[0].Address, Args: msgs[0].Args}
	}
	return &Packet{Bundle: msgs}
}

// Validate checks that the packet carries at least one message. Individual
// bundle entries are checked when they are applied.
func (p *Packet) Validate() error {
	if p.Address == "" && len(p.Bundle) == 0 {
		return fmt.Errorf("%w: no message", ErrMalformed)
	}
	if p.Address != "" {
		m := Message{Address: p.Address}
		return m.Validate()
	}
	return nil
}

// Messages returns the packet's messages in receipt order: the single
// message first, then the bundle.
func (p *Packet) Messages() []Message {
	msgs := make([]Message, 0, len(p.Bundle)+1)
	if p.Address != "" {
		msgs = append(msgs, Message{Address: p.Address, Args: p.Args})
	}
	return append(msgs, p.Bundle...)
}
