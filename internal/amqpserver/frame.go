package amqpserver

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// protocolHeader is the fixed preamble exchanged before any frames: both
// peers send it and must agree before continuing. AMQP0100 encodes the
// protocol id and the 1.0.0 version.
var protocolHeader = []byte{'A', 'M', 'Q', 'P', 0, 1, 0, 0}

const frameTypeAMQP = 0x00

// frame is one AMQP frame: a performative (the described list decoded by
// codec.go) and, for transfer frames, a trailing payload (the encoded
// message sections).
type frame struct {
	channel      uint16
	performative composite
	payload      []byte
}

// readFrame reads one frame from r: the 8-byte header (size, data offset,
// type, channel) followed by the performative and any payload.
func readFrame(r io.Reader) (*frame, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[0:4])
	doff := header[4]

	if size < 8 {
		return nil, fmt.Errorf("amqpserver: invalid frame size %d", size)
	}

	channel := binary.BigEndian.Uint16(header[6:8])

	body := make([]byte, size-8)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	extHeaderLen := int(doff)*4 - 8
	if extHeaderLen < 0 || extHeaderLen > len(body) {
		extHeaderLen = 0
	}

	body = body[extHeaderLen:]

	if len(body) == 0 {
		// Empty frame: used as a keepalive.
		return &frame{channel: channel}, nil
	}

	dec := newDecoder(body)

	v, err := dec.decodeValue()
	if err != nil {
		return nil, fmt.Errorf("amqpserver: decoding performative: %w", err)
	}

	perf, _ := v.(composite)

	return &frame{channel: channel, performative: perf, payload: body[dec.pos:]}, nil
}

// writeFrame encodes and writes one frame: a performative and, for
// transfers, a following payload of pre-encoded message sections.
func writeFrame(w io.Writer, channel uint16, perf composite, payload []byte) error {
	var body bytes.Buffer

	if err := encodeComposite(&body, perf); err != nil {
		return err
	}

	body.Write(payload)

	header := make([]byte, 8)
	binary.BigEndian.PutUint32(header[0:4], uint32(8+body.Len()))
	header[4] = 2 // data offset in 4-byte words
	header[5] = frameTypeAMQP
	binary.BigEndian.PutUint16(header[6:8], channel)

	if _, err := w.Write(header); err != nil {
		return err
	}

	_, err := w.Write(body.Bytes())

	return err
}
