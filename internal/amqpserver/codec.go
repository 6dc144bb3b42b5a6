package amqpserver

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// AMQP 1.0 primitive type constructors (AMQP 1.0 §1.6). Only the subset the
// server needs to speak and understand is implemented: the performatives
// exchanged during connection/session/link setup, and the message sections
// sent in a transfer.
const (
	typeNull     = 0x40
	typeBoolTrue = 0x41
	typeBoolFals = 0x42
	typeUint0    = 0x43
	typeUlong0   = 0x44
	typeSmallU   = 0x52
	typeSmallUL  = 0x53
	typeUint     = 0x70
	typeUlong    = 0x80
	typeStr8     = 0xA1
	typeStr32    = 0xB1
	typeSym8     = 0xA3
	typeSym32    = 0xB3
	typeBin8     = 0xA0
	typeBin32    = 0xB0
	typeList0    = 0x45
	typeList8    = 0xC0
	typeList32   = 0xD0
	typeMap8     = 0xC1
	typeMap32    = 0xD1
	typeDescribe = 0x00
)

// symbol is an AMQP symbol: an ASCII string with its own type constructors,
// used for descriptors and field names.
type symbol string

// composite is a described AMQP type: a descriptor (here always a ulong
// performative/section code) followed by a list of fields. Every
// performative and message section is a composite.
type composite struct {
	descriptor uint64
	fields     []any
}

// encodeValue appends the AMQP encoding of v to buf. Supported Go types:
// nil, bool, uint32, uint64, string, symbol, []byte, []any (list), and
// composite (described list).
func encodeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteByte(typeNull)
	case bool:
		if x {
			buf.WriteByte(typeBoolTrue)
		} else {
			buf.WriteByte(typeBoolFals)
		}
	case uint32:
		encodeUint(buf, x)
	case uint64:
		encodeUlong(buf, x)
	case string:
		encodeString(buf, x)
	case symbol:
		encodeSymbol(buf, string(x))
	case []byte:
		encodeBinary(buf, x)
	case []any:
		return encodeList(buf, x)
	case composite:
		return encodeComposite(buf, x)
	default:
		return fmt.Errorf("amqpserver: unsupported value type %T", v)
	}

	return nil
}

func encodeUint(buf *bytes.Buffer, v uint32) {
	if v == 0 {
		buf.WriteByte(typeUint0)
		return
	}

	if v <= 0xFF {
		buf.WriteByte(typeSmallU)
		buf.WriteByte(byte(v))

		return
	}

	buf.WriteByte(typeUint)
	_ = binary.Write(buf, binary.BigEndian, v)
}

func encodeUlong(buf *bytes.Buffer, v uint64) {
	if v == 0 {
		buf.WriteByte(typeUlong0)
		return
	}

	if v <= 0xFF {
		buf.WriteByte(typeSmallUL)
		buf.WriteByte(byte(v))

		return
	}

	buf.WriteByte(typeUlong)
	_ = binary.Write(buf, binary.BigEndian, v)
}

func encodeString(buf *bytes.Buffer, s string) {
	if len(s) <= 0xFF {
		buf.WriteByte(typeStr8)
		buf.WriteByte(byte(len(s)))
		buf.WriteString(s)

		return
	}

	buf.WriteByte(typeStr32)
	_ = binary.Write(buf, binary.BigEndian, uint32(len(s)))
	buf.WriteString(s)
}

func encodeSymbol(buf *bytes.Buffer, s string) {
	if len(s) <= 0xFF {
		buf.WriteByte(typeSym8)
		buf.WriteByte(byte(len(s)))
		buf.WriteString(s)

		return
	}

	buf.WriteByte(typeSym32)
	_ = binary.Write(buf, binary.BigEndian, uint32(len(s)))
	buf.WriteString(s)
}

func encodeBinary(buf *bytes.Buffer, b []byte) {
	if len(b) <= 0xFF {
		buf.WriteByte(typeBin8)
		buf.WriteByte(byte(len(b)))
		buf.Write(b)

		return
	}

	buf.WriteByte(typeBin32)
	_ = binary.Write(buf, binary.BigEndian, uint32(len(b)))
	buf.Write(b)
}

func encodeList(buf *bytes.Buffer, items []any) error {
	if len(items) == 0 {
		buf.WriteByte(typeList0)
		return nil
	}

	var body bytes.Buffer

	body.WriteByte(byte(len(items)))

	for _, item := range items {
		if err := encodeValue(&body, item); err != nil {
			return err
		}
	}

	if body.Len() <= 0xFF {
		buf.WriteByte(typeList8)
		buf.WriteByte(byte(body.Len()))
		buf.Write(body.Bytes())

		return nil
	}

	buf.WriteByte(typeList32)
	_ = binary.Write(buf, binary.BigEndian, uint32(body.Len()))
	buf.Write(body.Bytes())

	return nil
}

// encodeMap encodes a string-keyed map as an AMQP map, writing entries in
// the order given by keys; callers pass the keys sorted for determinism (the
// maps the server sends are tiny application-properties sets, so ordering
// only ever matters for reproducible tests).
func encodeMap(buf *bytes.Buffer, m map[string]any, keys []string) error {
	var body bytes.Buffer

	body.WriteByte(byte(len(keys) * 2))

	for _, k := range keys {
		encodeSymbol(&body, k)

		if err := encodeValue(&body, m[k]); err != nil {
			return err
		}
	}

	if body.Len() <= 0xFF {
		buf.WriteByte(typeMap8)
		buf.WriteByte(byte(body.Len()))
		buf.Write(body.Bytes())

		return nil
	}

	buf.WriteByte(typeMap32)
	_ = binary.Write(buf, binary.BigEndian, uint32(body.Len()))
	buf.Write(body.Bytes())

	return nil
}

func encodeComposite(buf *bytes.Buffer, c composite) error {
	buf.WriteByte(typeDescribe)
	encodeUlong(buf, c.descriptor)

	return encodeList(buf, c.fields)
}

// decoder reads AMQP values off a byte slice in order, used to pull the
// fields we care about out of an incoming performative's field list. It is
// intentionally permissive: unknown or malformed trailing fields are
// ignored rather than rejected, since the server only inspects the leading
// fields of any performative.
type decoder struct {
	data []byte
	pos  int
}

func newDecoder(data []byte) *decoder { return &decoder{data: data} }

func (d *decoder) done() bool { return d.pos >= len(d.data) }

// decodeValue parses the next AMQP value. Integers of every width decode as
// uint64; strings, symbols and binaries as string; lists as []any; maps as
// map[string]any; a described list as composite, and any other described
// value as the bare value, its descriptor dropped.
func (d *decoder) decodeValue() (any, error) {
	if d.pos >= len(d.data) {
		return nil, fmt.Errorf("amqpserver: truncated value")
	}

	code := d.data[d.pos]
	d.pos++

	switch code {
	case typeNull:
		return nil, nil
	case typeBoolTrue:
		return true, nil
	case typeBoolFals:
		return false, nil
	case 0x56:
		b := d.readBytes(1)
		return b[0] != 0, nil
	case typeUint0, typeUlong0:
		return uint64(0), nil
	case typeSmallU, typeSmallUL:
		b := d.readBytes(1)
		return uint64(b[0]), nil
	case typeUint:
		b := d.readBytes(4)
		return uint64(binary.BigEndian.Uint32(b)), nil
	case typeUlong:
		b := d.readBytes(8)
		return binary.BigEndian.Uint64(b), nil
	case typeStr8, typeSym8, typeBin8:
		n := d.readBytes(1)[0]
		return string(d.readBytes(int(n))), nil
	case typeStr32, typeSym32, typeBin32:
		n := binary.BigEndian.Uint32(d.readBytes(4))
		return string(d.readBytes(int(n))), nil
	case typeList0:
		return []any{}, nil
	case typeList8:
		size := int(d.readBytes(1)[0])
		return d.decodeListBody(size, true)
	case typeList32:
		size := int(binary.BigEndian.Uint32(d.readBytes(4)))
		return d.decodeListBody(size, false)
	case typeMap8:
		size := int(d.readBytes(1)[0])
		return d.decodeMapBody(size)
	case typeMap32:
		size := int(binary.BigEndian.Uint32(d.readBytes(4)))
		return d.decodeMapBody(size)
	case typeDescribe:
		descRaw, err := d.decodeValue()
		if err != nil {
			return nil, err
		}

		descriptor, _ := descRaw.(uint64)

		value, err := d.decodeValue()
		if err != nil {
			return nil, err
		}

		fields, ok := value.([]any)
		if !ok {
			return value, nil
		}

		return composite{descriptor: descriptor, fields: fields}, nil
	default:
		return nil, fmt.Errorf("amqpserver: unsupported type code 0x%02x", code)
	}
}

func (d *decoder) decodeListBody(byteSize int, oneByteCount bool) ([]any, error) {
	end := d.pos + byteSize

	var count int
	if oneByteCount {
		count = int(d.readBytes(1)[0])
	} else {
		count = int(binary.BigEndian.Uint32(d.readBytes(4)))
	}

	items := make([]any, 0, count)

	for i := 0; i < count && d.pos < end; i++ {
		v, err := d.decodeValue()
		if err != nil {
			// Keep the leading fields decoded so far and skip the rest.
			break
		}

		items = append(items, v)
	}

	d.pos = end

	return items, nil
}

func (d *decoder) decodeMapBody(byteSize int) (map[string]any, error) {
	end := d.pos + byteSize
	count := int(d.readBytes(1)[0])
	m := make(map[string]any, count/2)

	for i := 0; i < count && d.pos < end; i += 2 {
		k, err := d.decodeValue()
		if err != nil {
			return nil, err
		}

		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}

		ks, _ := k.(string)
		m[ks] = v
	}

	d.pos = end

	return m, nil
}

func (d *decoder) readBytes(n int) []byte {
	if d.pos+n > len(d.data) {
		b := make([]byte, n)
		copy(b, d.data[d.pos:])
		d.pos = len(d.data)

		return b
	}

	b := d.data[d.pos : d.pos+n]
	d.pos += n

	return b
}

// fieldAt returns fields[i] or nil if the performative omitted it, which is
// legal for every optional trailing field AMQP 1.0 defines.
func fieldAt(fields []any, i int) any {
	if i < 0 || i >= len(fields) {
		return nil
	}

	return fields[i]
}

func fieldUint32(fields []any, i int) uint32 {
	switch v := fieldAt(fields, i).(type) {
	case uint64:
		return uint32(v)
	case uint32:
		return v
	}

	return 0
}

func fieldString(fields []any, i int) string {
	s, _ := fieldAt(fields, i).(string)
	return s
}

func fieldBool(fields []any, i int) bool {
	b, _ := fieldAt(fields, i).(bool)
	return b
}
