// Package query serves the HTTP side of an OSCQuery server.
//
//	GET /hands/left          snapshot of the subtree, {} if unknown
//	GET /hands/left/x?VALUE  only the VALUE attribute
//	GET /?HOST_INFO          host info (also /?name=host_info)
//
// Requests asking for a websocket upgrade are handed to the subscription
// hub. Any other method gets a 500 with a plain-text reason; a panic in a
// handler fails only that request.
package query
