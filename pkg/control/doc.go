// Package control receives control messages over UDP and applies them to a
// tree.
//
// Each datagram holds one OSC packet (see package wire): a single message
// or a bundle, whose contents are applied in order. Messages are applied in receipt order through
// tree.SetValue. Rejected messages are logged, counted and captured in the
// protocol log; the sender gets no reply.
package control
