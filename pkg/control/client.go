package control

import (
	"context"
	"fmt"
	"net"

	"github.com/plml/oscquery-go/pkg/wire"
)

// Client sends control packets to one server.
type Client struct {
	conn net.Conn
}

// Dial connects a client to addr (host:port).
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Send writes msgs as one datagram: a single message, or a bundle when
// there are several.
func (c *Client) Send(ctx context.Context, msgs ...wire.Message) error {
	if len(msgs) == 0 {
		return fmt.Errorf("%w: no message", wire.ErrMalformed)
	}
	for i := range msgs {
		if err := msgs[i].Validate(); err != nil {
			return err
		}
	}
	data, err := wire.EncodePacket(wire.NewBundle(msgs...))
	if err != nil {
		return err
	}
	if len(data) > MaxDatagramSize {
		return fmt.Errorf("%w: packet of %d bytes exceeds datagram size", wire.ErrMalformed, len(data))
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// Close releases the socket.
func (c *Client) Close() error {
	return c.conn.Close()
}
