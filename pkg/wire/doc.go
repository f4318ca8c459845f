// Package wire defines the formats exchanged with OSCQuery peers.
//
// # JSON
//
// Tree snapshots, host info and subscription commands are JSON objects with
// upper-case field names:
//
//	{
//	  "DESCRIPTION": "x",
//	  "FULL_PATH": "/hands/left/x",
//	  "TYPE": "f",
//	  "ACCESS": 3,
//	  "VALUE": [0.5],
//	  "RANGE": [{"MIN": 0, "MAX": 1}]
//	}
//
// Container CONTENTS keep the order in which children were registered.
//
// # OSC
//
// Control messages travel as OSC 1.0 packets, one per UDP datagram or
// websocket binary frame. A message is an address, a type tag string and
// the arguments, each padded to four bytes:
//
//	"/hands/left/x\0\0\0"  ",f\0\0"  0x3f000000
//
// Bundles ("#bundle") are flattened in order; their time tags are ignored
// and every element is applied on receipt. Integer arguments decode as
// int64 and floats as float64 whatever their width on the wire.
package wire
