package tree

import "errors"

// Tree errors. Every rejection returned by the tree wraps exactly one of these.
var (
	// ErrNotFound means no node exists at the path.
	ErrNotFound = errors.New("node not found")

	// ErrAccessDenied means the node's access flags forbid the operation.
	ErrAccessDenied = errors.New("access denied")

	// ErrMalformed means the request itself is unusable (bad arity, bad path).
	ErrMalformed = errors.New("malformed request")

	// ErrTypeMismatch means the value cannot be coerced to the node's kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrOutOfRange means the value coerced but is outside the node's range or enum.
	ErrOutOfRange = errors.New("value out of range")
)
