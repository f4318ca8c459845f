package tree

import (
	"fmt"
	"strings"
)

// Kind is the type of a node. A node's kind never changes after creation.
type Kind uint8

const (
	KindContainer Kind = iota
	KindInteger
	KindFloat
	KindString
	KindBoolean
	KindColor
)

// Wire type tags.
const (
	TagContainer = "Container"
	TagInteger   = "i"
	TagFloat     = "f"
	TagString    = "s"
	TagColor     = "r"
	TagBoolean   = "T"
)

// Tag returns the wire TYPE value for the kind.
func (k Kind) Tag() string {
	switch k {
	case KindContainer:
		return TagContainer
	case KindInteger:
		return TagInteger
	case KindFloat:
		return TagFloat
	case KindString:
		return TagString
	case KindBoolean:
		return TagBoolean
	case KindColor:
		return TagColor
	default:
		return ""
	}
}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindColor:
		return "color"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseTag maps a wire TYPE value back to a Kind.
func ParseTag(tag string) (Kind, bool) {
	switch tag {
	case TagContainer:
		return KindContainer, true
	case TagInteger:
		return KindInteger, true
	case TagFloat:
		return KindFloat, true
	case TagString:
		return KindString, true
	case TagBoolean:
		return KindBoolean, true
	case TagColor:
		return KindColor, true
	default:
		return 0, false
	}
}

// Access gates which operations external peers may perform on a node.
type Access uint8

const (
	// AccessNoValue is used by nodes without a value (containers).
	AccessNoValue Access = 0

	// AccessReadOnly allows reading the value.
	AccessReadOnly Access = 1

	// AccessWriteOnly allows writing the value.
	AccessWriteOnly Access = 2

	// AccessReadWrite allows both.
	AccessReadWrite = AccessReadOnly | AccessWriteOnly
)

// CanRead returns true if reading is allowed.
func (a Access) CanRead() bool { return a&AccessReadOnly != 0 }

// CanWrite returns true if writing is allowed.
func (a Access) CanWrite() bool { return a&AccessWriteOnly != 0 }

// String returns the access flags as a string.
func (a Access) String() string {
	var s string
	if a.CanRead() {
		s += "R"
	}
	if a.CanWrite() {
		s += "W"
	}
	if s == "" {
		return "-"
	}
	return s
}

// ParseAccess parses the form produced by Access.String, case-insensitively.
func ParseAccess(s string) (Access, bool) {
	switch strings.ToUpper(s) {
	case "-", "":
		return AccessNoValue, true
	case "R":
		return AccessReadOnly, true
	case "W":
		return AccessWriteOnly, true
	case "RW", "WR":
		return AccessReadWrite, true
	default:
		return 0, false
	}
}
