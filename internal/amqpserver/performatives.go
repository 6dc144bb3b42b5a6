package amqpserver

import "bytes"

// Performative and message-section descriptor codes, AMQP 1.0 §2.7/§3.2.
const (
	descOpen       = 0x10
	descBegin      = 0x11
	descAttach     = 0x12
	descFlow       = 0x13
	descTransfer   = 0x14
	descDisp       = 0x15
	descDetach     = 0x16
	descClose      = 0x18
	descSource     = 0x28
	descTarget     = 0x29
	descHeader     = 0x70
	descProperties = 0x73
	descAppProps   = 0x74
	descDataSect   = 0x75
)

// roleSender/roleReceiver are the two values AMQP's attach.role field
// takes. The server only ever plays sender: subscribers attach as
// receivers to pull events.
const (
	roleSender   = false
	roleReceiver = true
)

func openFrame(containerID string) composite {
	return composite{descriptor: descOpen, fields: []any{containerID}}
}

func beginFrame(remoteChannel uint32, nextOutgoingID uint32) composite {
	return composite{
		descriptor: descBegin,
		fields: []any{
			remoteChannel,
			nextOutgoingID,
			uint32(100), // incoming-window
			uint32(100), // outgoing-window
		},
	}
}

// attachReplyFrame echoes the peer's attach, naming the server as sender
// and the source address the peer requested (address stripped of a
// leading "/", matching the subscription table's keys).
func attachReplyFrame(name string, handle uint32, sourceAddress string) composite {
	source := composite{descriptor: descSource, fields: []any{sourceAddress}}

	return composite{
		descriptor: descAttach,
		fields: []any{
			name,
			handle,
			roleSender,
			nil, // snd-settle-mode: default
			nil, // rcv-settle-mode: default
			source,
			composite{descriptor: descTarget, fields: []any{}},
		},
	}
}

func flowFrame(handle uint32, deliveryCount, linkCredit uint32) composite {
	return composite{
		descriptor: descFlow,
		fields: []any{
			uint32(100), // next-incoming-id
			uint32(100), // incoming-window
			uint32(0),   // next-outgoing-id
			uint32(100), // outgoing-window
			handle,
			deliveryCount,
			linkCredit,
		},
	}
}

func closeFrame() composite {
	return composite{descriptor: descClose, fields: []any{}}
}

func detachFrame(handle uint32) composite {
	return composite{descriptor: descDetach, fields: []any{handle, true}}
}

// transferFrame addresses a message to handle; deliveryID/tag identify the
// delivery for settlement (the server sends pre-settled, so no
// disposition round-trip is required).
func transferFrame(handle, deliveryID uint32, deliveryTag []byte) composite {
	return composite{
		descriptor: descTransfer,
		fields: []any{
			handle,
			deliveryID,
			deliveryTag,
			uint32(0), // message-format
			true,      // settled
			false,     // more
		},
	}
}

// encodeMessage renders a stagger update as AMQP message sections: a
// properties section carrying content-type, an application-properties
// section carrying {type, path}, and a data section carrying the node's
// canonical JSON.
func encodeMessage(typeName, path string, body []byte) ([]byte, error) {
	var buf bytes.Buffer

	properties := composite{
		descriptor: descProperties,
		fields: []any{
			nil, nil, nil, nil, nil, nil,
			symbol("application/json"), // content-type
		},
	}
	if err := encodeComposite(&buf, properties); err != nil {
		return nil, err
	}

	buf.WriteByte(typeDescribe)
	encodeUlong(&buf, descAppProps)

	appProps := map[string]any{"type": typeName, "path": path}
	if err := encodeMap(&buf, appProps, []string{"path", "type"}); err != nil {
		return nil, err
	}

	data := composite{descriptor: descDataSect, fields: []any{body}}
	if err := encodeComposite(&buf, data); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
