// Package tree implements the parameter tree served by an OSCQuery server.
//
// # Structure
//
// The tree is a hierarchy of nodes addressed by slash-delimited paths:
//
//	/                      (root container)
//	├── hands              (container)
//	│   ├── left           (container)
//	│   │   ├── x          (float, range 0..1)
//	│   │   └── visible    (boolean)
//	│   └── tint           (color)
//	└── mode               (string, enum)
//
// Paths are case-insensitive. Empty segments are dropped, so "/Hands//Left/X/"
// and "hands/left/x" address the same node. Containers are created implicitly
// when a deeper path is registered.
//
// # Values
//
// Leaf nodes hold exactly one scalar of their Kind. Incoming values from any
// channel are coerced to the node's Kind, clamped or checked against the
// node's Range, and only then committed. A rejected value never changes the
// node.
//
// # Observers
//
// A committed value is reported to the node's OnChange callback and, when the
// node is being listened to, to the tree's Observer. Registration reports
// every newly added path to the Observer.
package tree
