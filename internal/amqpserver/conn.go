package amqpserver

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/ssorj/stagger/internal/model"
	"github.com/ssorj/stagger/internal/platform/mlog"

	"github.com/google/uuid"
)

// conn is one accepted TCP connection, speaking the AMQP 1.0 protocol
// handshake and performative stream. Network reads happen on conn.serve's
// goroutine; network writes are serialized by writeMu since both that
// goroutine (replying to attach/flow) and the server's dispatch goroutine
// (sending transfers) write to the same socket.
type conn struct {
	netConn  net.Conn
	reader   *bufio.Reader
	writeMu  sync.Mutex
	logger   mlog.Logger
	commands chan<- command

	handleNames map[uint32]string
}

func newConn(nc net.Conn, commands chan<- command, logger mlog.Logger) *conn {
	return &conn{
		netConn:  nc,
		reader:   bufio.NewReader(nc),
		commands: commands,
		logger:   logger,
	}
}

// serve runs the connection's read loop until the peer disconnects or sends
// close. It always reports the connection's end to the dispatch loop so
// any subscriptions it held are cleaned up.
func (c *conn) serve() {
	defer c.netConn.Close()
	defer func() { c.commands <- connClosedCommand{conn: c} }()

	if err := c.negotiateProtocol(); err != nil {
		c.logger.Warnf("amqp: protocol negotiation failed: %s", err)
		return
	}

	for {
		f, err := readFrame(c.reader)
		if err != nil {
			return
		}

		if f.performative.fields == nil && f.performative.descriptor == 0 {
			continue // empty frame (keepalive)
		}

		if err := c.handlePerformative(f); err != nil {
			c.logger.Warnf("amqp: %s", err)
			return
		}
	}
}

func (c *conn) negotiateProtocol() error {
	header := make([]byte, len(protocolHeader))
	if _, err := io.ReadFull(c.reader, header); err != nil {
		return err
	}

	if !bytes.Equal(header, protocolHeader) {
		return fmt.Errorf("unexpected protocol header %q", header)
	}

	return c.writeRaw(protocolHeader)
}

func (c *conn) handlePerformative(f *frame) error {
	switch f.performative.descriptor {
	case descOpen:
		return c.write(0, openFrame("stagger"), nil)
	case descBegin:
		remoteChannel := uint32(f.channel)
		return c.write(f.channel, beginFrame(remoteChannel, 0), nil)
	case descAttach:
		return c.handleAttach(f)
	case descFlow:
		return c.handleFlow(f)
	case descDetach:
		handle := fieldUint32(f.performative.fields, 0)
		c.commands <- detachCommand{conn: c, linkName: c.linkNameForHandle(handle)}

		return c.write(f.channel, detachFrame(handle), nil)
	case descClose:
		_ = c.write(f.channel, closeFrame(), nil)
		return fmt.Errorf("connection closed by peer")
	case descTransfer:
		// The server accepts no inbound links; any transfer is ignored.
		return nil
	}

	return nil
}

// linkNameForHandle recovers the link name attach recorded for handle, so a
// detach or flow frame naming only a handle can still be reported to the
// dispatch loop by name.
func (c *conn) linkNameForHandle(handle uint32) string {
	if name, ok := c.handleNames[handle]; ok {
		return name
	}

	return fmt.Sprintf("handle-%d", handle)
}

func (c *conn) handleAttach(f *frame) error {
	fields := f.performative.fields

	name := fieldString(fields, 0)
	handle := fieldUint32(fields, 1)
	remoteRole := fieldBool(fields, 2)

	if remoteRole != roleReceiver {
		// The peer wants to send to us; the server accepts no inbound
		// links, so just echo the attach with an empty source/target and
		// never grant credit.
		return c.write(f.channel, attachReplyFrame(name, handle, ""), nil)
	}

	source, _ := fieldAt(fields, 5).(composite)
	address := strings.TrimPrefix(fieldString(source.fields, 0), "/")

	if c.handleNames == nil {
		c.handleNames = make(map[uint32]string)
	}

	c.handleNames[handle] = name

	c.commands <- attachCommand{conn: c, linkName: name, handle: handle, address: address}

	return c.write(f.channel, attachReplyFrame(name, handle, address), nil)
}

func (c *conn) handleFlow(f *frame) error {
	fields := f.performative.fields

	handle := fieldUint32(fields, 4)
	credit := fieldUint32(fields, 6)

	c.commands <- flowCommand{conn: c, linkName: c.linkNameForHandle(handle), credit: credit}

	return nil
}

// sendUpdate transfers u to sub over c's connection.
func (c *conn) sendUpdate(sub *subscription, u model.Update) error {
	payload, err := encodeMessage(u.TypeName, u.EventPath, u.JSON)
	if err != nil {
		return err
	}

	tag := []byte(uuid.NewString())

	return c.write(0, transferFrame(sub.handle, sub.deliveryCount, tag), payload)
}

func (c *conn) write(channel uint16, perf composite, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return writeFrame(c.netConn, channel, perf, payload)
}

func (c *conn) writeRaw(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.netConn.Write(b)

	return err
}
