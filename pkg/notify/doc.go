// Package notify pushes tree changes to subscription sessions.
//
// Peers open a session by upgrading a request on the query port to a
// websocket. On a session they send text frames
//
//	{"COMMAND": "LISTEN", "DATA": "/hands/left/x"}
//	{"COMMAND": "IGNORE", "DATA": "/hands/left/x"}
//
// which toggle the node's listening flag. The Hub receives value changes
// of listened nodes and registrations from the tree and pushes them to the
// active session: a value change as a binary frame holding an OSC message,
// a new path as a text frame
//
//	{"COMMAND": "PATH_ADDED", "DATA": "/hands/left/x"}
//
// Only the most recently opened session is active. Older sessions stay open
// and may still send commands but receive no pushes. Pushes never block the
// caller: with no active session or a full send queue they are dropped.
package notify
