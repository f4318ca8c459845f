package log

import (
	"strings"
	"time"
)

// Event is one captured protocol event. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the peer session (websocket session UUID, or the
	// control listener ID for datagrams).
	SessionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Channel   Channel   `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// One of these is set.
	Message     *MessageEvent     `cbor:"10,keyasint,omitempty"`
	Command     *CommandEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection parses a direction name, case-insensitive.
func ParseDirection(s string) (Direction, bool) {
	for d := DirectionIn; d <= DirectionOut; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, true
		}
	}
	return 0, false
}

// Channel is the surface an event travelled on.
type Channel uint8

const (
	// ChannelQuery is the HTTP snapshot surface.
	ChannelQuery Channel = 0
	// ChannelControl is the UDP control-message surface.
	ChannelControl Channel = 1
	// ChannelSubscription is a websocket subscription session.
	ChannelSubscription Channel = 2
	// ChannelDiscovery is service advertisement.
	ChannelDiscovery Channel = 3
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case ChannelQuery:
		return "QUERY"
	case ChannelControl:
		return "CONTROL"
	case ChannelSubscription:
		return "SUBSCRIPTION"
	case ChannelDiscovery:
		return "DISCOVERY"
	default:
		return "UNKNOWN"
	}
}

// ParseChannel parses a channel name, case-insensitive.
func ParseChannel(s string) (Channel, bool) {
	for c := ChannelQuery; c <= ChannelDiscovery; c++ {
		if strings.EqualFold(c.String(), s) {
			return c, true
		}
	}
	return 0, false
}

// Category classifies the event.
type Category uint8

const (
	// CategoryMessage is a control message (address plus arguments).
	CategoryMessage Category = 0
	// CategoryCommand is a subscription command (LISTEN, PATH_ADDED, ...).
	CategoryCommand Category = 1
	// CategoryState is a lifecycle change.
	CategoryState Category = 2
	// CategoryError is a fault or rejection.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryCommand:
		return "COMMAND"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name, case-insensitive.
func ParseCategory(s string) (Category, bool) {
	for c := CategoryMessage; c <= CategoryError; c++ {
		if strings.EqualFold(c.String(), s) {
			return c, true
		}
	}
	return 0, false
}

// MessageEvent captures a control message received or pushed.
type MessageEvent struct {
	Address string `cbor:"1,keyasint"`
	Args    []any  `cbor:"2,keyasint,omitempty"`

	// Rejection holds the reason a received message was not applied.
	// Empty means it was committed.
	Rejection string `cbor:"3,keyasint,omitempty"`
}

// CommandEvent captures a subscription command frame.
type CommandEvent struct {
	Command string `cbor:"1,keyasint"`
	Data    string `cbor:"2,keyasint,omitempty"`
}

// StateChangeEvent captures lifecycle changes of the server, a session or
// an advertisement.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	StateEntityServer        StateEntity = 0
	StateEntitySession       StateEntity = 1
	StateEntityAdvertisement StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityServer:
		return "SERVER"
	case StateEntitySession:
		return "SESSION"
	case StateEntityAdvertisement:
		return "ADVERTISEMENT"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures a fault on any channel.
type ErrorEventData struct {
	Message string `cbor:"1,keyasint"`

	// Context describes what was being done.
	Context string `cbor:"2,keyasint,omitempty"`
}
