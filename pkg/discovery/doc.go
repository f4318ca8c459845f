// Package discovery advertises and finds OSCQuery services over mDNS/DNS-SD.
//
// A server announces two services under one instance name:
//
//	_osc._udp      the control-message port
//	_oscjson._tcp  the HTTP query port (websocket subscriptions share it)
//
// Advertising always probes first. If an instance with the same name and
// type already answers on the network, or is registered elsewhere in this
// process, the attempt fails with ErrCollision and nothing is registered.
// Withdraw and WithdrawAll remove what this process registered.
//
// The Backend interface separates the advertise/probe contract from the
// mDNS implementation; MemoryBackend serves tests and single-process use.
package discovery
