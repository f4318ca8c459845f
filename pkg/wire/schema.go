package wire

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Node is the JSON snapshot of a tree node.
type Node struct {
	Description string                                `json:"DESCRIPTION"`
	FullPath    string                                `json:"FULL_PATH"`
	Type        string                                `json:"TYPE"`
	Access      *int                                  `json:"ACCESS,omitempty"`
	Contents    *orderedmap.OrderedMap[string, *Node] `json:"CONTENTS,omitempty"`
	Value       []any                                 `json:"VALUE,omitempty"`
	Range       []Range                               `json:"RANGE,omitempty"`
}

// Child returns the named child from CONTENTS.
func (n *Node) Child(name string) (*Node, bool) {
	if n.Contents == nil {
		return nil, false
	}
	return n.Contents.Get(name)
}

// Range is one RANGE entry: numeric bounds or an enumeration.
type Range struct {
	Min  *float64 `json:"MIN,omitempty"`
	Max  *float64 `json:"MAX,omitempty"`
	Vals []string `json:"VALS,omitempty"`
}

// Extension names advertised in host info.
const (
	ExtAccess      = "ACCESS"
	ExtValue       = "VALUE"
	ExtRange       = "RANGE"
	ExtType        = "TYPE"
	ExtDescription = "DESCRIPTION"
	ExtFullPath    = "FULL_PATH"
	ExtContents    = "CONTENTS"
	ExtListen      = "LISTEN"
	ExtPathAdded   = "PATH_ADDED"
	ExtPathRemoved = "PATH_REMOVED"
	ExtPathRenamed = "PATH_RENAMED"
	ExtPathChanged = "PATH_CHANGED"
	ExtClipmode    = "CLIPMODE"
	ExtCritical    = "CRITICAL"
	ExtTags        = "TAGS"
	ExtUnit        = "UNIT"
)

// Transports for OSC_TRANSPORT.
const (
	TransportUDP = "UDP"
	TransportTCP = "TCP"
)

// HostInfo describes the server.
type HostInfo struct {
	Name         string            `json:"NAME"`
	Extensions   map[string]bool   `json:"EXTENSIONS"`
	OSCPort      int               `json:"OSC_PORT"`
	OSCTransport string            `json:"OSC_TRANSPORT"`
	Metadata     map[string]string `json:"METADATA,omitempty"`
}

// Subscription commands.
const (
	CommandListen      = "LISTEN"
	CommandIgnore      = "IGNORE"
	CommandPathAdded   = "PATH_ADDED"
	CommandPathRemoved = "PATH_REMOVED"
	CommandPathRenamed = "PATH_RENAMED"
	CommandPathChanged = "PATH_CHANGED"
)

// Command is a text frame on a subscription session.
type Command struct {
	Command string `json:"COMMAND"`
	Data    any    `json:"DATA"`
}
