package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// OSC type tags.
const (
	TagInt32   = 'i'
	TagInt64   = 'h'
	TagFloat32 = 'f'
	TagFloat64 = 'd'
	TagString  = 's'
	TagSymbol  = 'S'
	TagBlob    = 'b'
	TagTrue    = 'T'
	TagFalse   = 'F'
	TagNil     = 'N'
	TagImpulse = 'I'
	TagChar    = 'c'
	TagColor   = 'r'
	TagMIDI    = 'm'
	TagTime    = 't'
)

const (
	bundleTag = "#bundle"

	// timeImmediately is the OSC time tag meaning "now".
	timeImmediately = 1

	// maxBundleDepth bounds nested bundles in a received packet.
	maxBundleDepth = 8
)

// ErrUnsupported is returned when an argument has no OSC encoding.
var ErrUnsupported = errors.New("unsupported argument type")

// EncodeMessage encodes a single message as an OSC message.
func EncodeMessage(msg *Message) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	var e encoder
	if err := e.message(msg); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// EncodePacket encodes a packet. One message encodes as a plain OSC
// message, more as a bundle to be applied immediately.
func EncodePacket(p *Packet) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid packet: %w", err)
	}
	msgs := p.Messages()
	if len(msgs) == 1 {
		return EncodeMessage(&msgs[0])
	}

	var e encoder
	e.str(bundleTag)
	e.u64(timeImmediately)
	for i := range msgs {
		if err := msgs[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid packet: %w", err)
		}
		var m encoder
		if err := m.message(&msgs[i]); err != nil {
			return nil, err
		}
		e.u32(uint32(len(m.buf)))
		e.buf = append(e.buf, m.buf...)
	}
	return e.buf, nil
}

// DecodePacket decodes an OSC message or bundle. Bundle contents, nested
// bundles included, are flattened in order.
func DecodePacket(data []byte) (*Packet, error) {
	var p Packet
	switch {
	case len(data) == 0:
		return nil, fmt.Errorf("failed to decode packet: %w: empty", ErrMalformed)
	case data[0] == '#':
		if err := decodeBundle(data, &p.Bundle, 0); err != nil {
			return nil, fmt.Errorf("failed to decode packet: %w", err)
		}
	default:
		m, err := decodeMessage(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode packet: %w", err)
		}
		p.Address, p.Args = m.Address, m.Args
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid packet: %w", err)
	}
	return &p, nil
}

type encoder struct {
	buf []byte
}

func (e *encoder) pad() {
	for len(e.buf)%4 != 0 {
		e.buf = append(e.buf, 0)
	}
}

func (e *encoder) str(s string) {
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
	e.pad()
}

func (e *encoder) u32(v uint32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

func (e *encoder) u64(v uint64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

func (e *encoder) message(m *Message) error {
	tags := []byte{','}
	var args encoder
	for _, a := range m.Args {
		tag, err := args.arg(a)
		if err != nil {
			return fmt.Errorf("%s: %w", m.Address, err)
		}
		tags = append(tags, tag)
	}
	e.str(m.Address)
	e.str(string(tags))
	e.buf = append(e.buf, args.buf...)
	return nil
}

// arg appends one argument and returns its tag. Integers use 'i' when they
// fit 32 bits, floats use 'f' when float32 holds them exactly.
func (e *encoder) arg(a any) (byte, error) {
	switch v := a.(type) {
	case nil:
		return TagNil, nil
	case bool:
		if v {
			return TagTrue, nil
		}
		return TagFalse, nil
	case int:
		return e.integer(int64(v)), nil
	case int8:
		return e.integer(int64(v)), nil
	case int16:
		return e.integer(int64(v)), nil
	case int32:
		return e.integer(int64(v)), nil
	case int64:
		return e.integer(v), nil
	case uint:
		return e.unsigned(uint64(v))
	case uint8:
		return e.integer(int64(v)), nil
	case uint16:
		return e.integer(int64(v)), nil
	case uint32:
		return e.integer(int64(v)), nil
	case uint64:
		return e.unsigned(v)
	case float32:
		e.u32(math.Float32bits(v))
		return TagFloat32, nil
	case float64:
		if f := float32(v); float64(f) == v {
			e.u32(math.Float32bits(f))
			return TagFloat32, nil
		}
		e.u64(math.Float64bits(v))
		return TagFloat64, nil
	case string:
		if strings.IndexByte(v, 0) >= 0 {
			return 0, fmt.Errorf("%w: string contains NUL", ErrMalformed)
		}
		e.str(v)
		return TagString, nil
	case []byte:
		e.u32(uint32(len(v)))
		e.buf = append(e.buf, v...)
		e.pad()
		return TagBlob, nil
	case RGBA:
		e.u32(uint32(v))
		return TagColor, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupported, a)
	}
}

func (e *encoder) integer(v int64) byte {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		e.u32(uint32(int32(v)))
		return TagInt32
	}
	e.u64(uint64(v))
	return TagInt64
}

func (e *encoder) unsigned(v uint64) (byte, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d overflows int64", ErrUnsupported, v)
	}
	return e.integer(int64(v)), nil
}

type decoder struct {
	data []byte
	off  int
}

func (d *decoder) done() bool {
	return d.off >= len(d.data)
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || len(d.data)-d.off < n {
		return nil, fmt.Errorf("%w: truncated at offset %d", ErrMalformed, d.off)
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) str() (string, error) {
	i := bytes.IndexByte(d.data[d.off:], 0)
	if i < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", ErrMalformed, d.off)
	}
	b, err := d.take((i + 4) &^ 3)
	if err != nil {
		return "", err
	}
	return string(b[:i]), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func decodeBundle(data []byte, out *[]Message, depth int) error {
	if depth >= maxBundleDepth {
		return fmt.Errorf("%w: bundles nested deeper than %d", ErrMalformed, maxBundleDepth)
	}
	d := &decoder{data: data}
	tag, err := d.str()
	if err != nil {
		return err
	}
	if tag != bundleTag {
		return fmt.Errorf("%w: bad bundle tag %q", ErrMalformed, tag)
	}
	if _, err := d.u64(); err != nil {
		return err
	}
	for !d.done() {
		size, err := d.u32()
		if err != nil {
			return err
		}
		if size == 0 || size%4 != 0 {
			return fmt.Errorf("%w: bundle element size %d", ErrMalformed, size)
		}
		elem, err := d.take(int(size))
		if err != nil {
			return err
		}
		if elem[0] == '#' {
			if err := decodeBundle(elem, out, depth+1); err != nil {
				return err
			}
			continue
		}
		m, err := decodeMessage(elem)
		if err != nil {
			return err
		}
		*out = append(*out, m)
	}
	return nil
}

func decodeMessage(data []byte) (Message, error) {
	d := &decoder{data: data}
	addr, err := d.str()
	if err != nil {
		return Message{}, err
	}
	m := Message{Address: addr}
	if d.done() {
		return m, nil
	}
	tags, err := d.str()
	if err != nil {
		return Message{}, err
	}
	if tags == "" || tags[0] != ',' {
		return Message{}, fmt.Errorf("%w: type tags %q", ErrMalformed, tags)
	}
	for i := 1; i < len(tags); i++ {
		v, err := d.arg(tags[i])
		if err != nil {
			return Message{}, fmt.Errorf("%s: %w", addr, err)
		}
		m.Args = append(m.Args, v)
	}
	return m, nil
}

func (d *decoder) arg(tag byte) (any, error) {
	switch tag {
	case TagInt32:
		v, err := d.u32()
		return int64(int32(v)), err
	case TagInt64:
		v, err := d.u64()
		return int64(v), err
	case TagFloat32:
		v, err := d.u32()
		return float64(math.Float32frombits(v)), err
	case TagFloat64:
		v, err := d.u64()
		return math.Float64frombits(v), err
	case TagString, TagSymbol:
		return d.str()
	case TagBlob:
		size, err := d.u32()
		if err != nil {
			return nil, err
		}
		if size > math.MaxInt32 {
			return nil, fmt.Errorf("%w: blob size %d", ErrMalformed, size)
		}
		b, err := d.take((int(size) + 3) &^ 3)
		if err != nil {
			return nil, err
		}
		return bytes.Clone(b[:size]), nil
	case TagTrue:
		return true, nil
	case TagFalse:
		return false, nil
	case TagNil, TagImpulse:
		return nil, nil
	case TagChar:
		v, err := d.u32()
		return string(rune(v)), err
	case TagColor:
		v, err := d.u32()
		return RGBA(v), err
	case TagMIDI:
		b, err := d.take(4)
		return bytes.Clone(b), err
	case TagTime:
		v, err := d.u64()
		return v, err
	default:
		return nil, fmt.Errorf("%w: unknown type tag %q", ErrMalformed, tag)
	}
}
