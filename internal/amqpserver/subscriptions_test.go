package amqpserver

import (
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssorj/stagger/internal/model"
	"github.com/ssorj/stagger/internal/platform/mlog"
)

// drainFrame reads one full AMQP frame off the client side of a net.Pipe:
// the 8-byte header, whose size field tells us how many more bytes follow.
func drainFrame(client net.Conn) []byte {
	header := make([]byte, 8)
	if _, err := io.ReadFull(client, header); err != nil {
		return nil
	}

	size := binary.BigEndian.Uint32(header[0:4])
	body := make([]byte, size-8)

	if _, err := io.ReadFull(client, body); err != nil {
		return nil
	}

	return append(header, body...)
}

func newTestConn(t *testing.T) (*conn, net.Conn) {
	t.Helper()

	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })

	return newConn(server, make(chan command, 8), &mlog.NoneLogger{}), client
}

func TestSubscriptionTable_AttachFlowDeliver(t *testing.T) {
	table := subscriptionTable{}
	c, client := newTestConn(t)

	table.attach(attachCommand{conn: c, linkName: "link-1", handle: 1, address: "events/repos/widget"})
	table.flow(flowCommand{conn: c, linkName: "link-1", credit: 1})

	readDone := make(chan []byte, 1)
	go func() {
		readDone <- drainFrame(client)
	}()

	table.deliver(model.Update{EventPath: "events/repos/widget", TypeName: "repo", JSON: []byte(`{}`)})

	data := <-readDone
	assert.NotEmpty(t, data, "a subscriber with credit must receive the delivery")

	sub := table["events/repos/widget"]["link-1"]
	assert.EqualValues(t, 0, sub.credit, "credit must be decremented after a successful delivery")
	assert.EqualValues(t, 1, sub.deliveryCount)
}

func TestSubscriptionTable_NoCreditDropsDelivery(t *testing.T) {
	table := subscriptionTable{}
	c, _ := newTestConn(t)

	table.attach(attachCommand{conn: c, linkName: "link-1", handle: 1, address: "events/repos/widget"})

	table.deliver(model.Update{EventPath: "events/repos/widget", JSON: []byte(`{}`)})

	sub := table["events/repos/widget"]["link-1"]
	assert.EqualValues(t, 0, sub.deliveryCount, "a subscriber with zero credit must not receive anything")
}

func TestSubscriptionTable_WildcardReceivesEveryUpdate(t *testing.T) {
	table := subscriptionTable{}
	c, client := newTestConn(t)

	table.attach(attachCommand{conn: c, linkName: "watcher", handle: 1, address: wildcardAddress})
	table.flow(flowCommand{conn: c, linkName: "watcher", credit: 5})

	readDone := make(chan struct{}, 1)
	go func() {
		drainFrame(client)
		readDone <- struct{}{}
	}()

	table.deliver(model.Update{EventPath: "events/repos/anything", JSON: []byte(`{}`)})

	<-readDone

	sub := table[wildcardAddress]["watcher"]
	assert.EqualValues(t, 1, sub.deliveryCount)
}

func TestSubscriptionTable_DetachRemovesSubscription(t *testing.T) {
	table := subscriptionTable{}
	c, _ := newTestConn(t)

	table.attach(attachCommand{conn: c, linkName: "link-1", handle: 1, address: "events/repos/widget"})
	table.detach(detachCommand{conn: c, linkName: "link-1"})

	require.Empty(t, table["events/repos/widget"])
}

func TestSubscriptionTable_ConnClosedRemovesAllItsSubscriptions(t *testing.T) {
	table := subscriptionTable{}
	c1, _ := newTestConn(t)
	c2, _ := newTestConn(t)

	table.attach(attachCommand{conn: c1, linkName: "a", handle: 1, address: "events/repos/widget"})
	table.attach(attachCommand{conn: c2, linkName: "b", handle: 1, address: "events/repos/widget"})

	table.connClosed(c1)

	_, stillHasA := table["events/repos/widget"]["a"]
	_, stillHasB := table["events/repos/widget"]["b"]
	assert.False(t, stillHasA)
	assert.True(t, stillHasB)
}

func TestSubscriptionTable_FlowIgnoresUnknownLink(t *testing.T) {
	table := subscriptionTable{}
	c, _ := newTestConn(t)

	table.attach(attachCommand{conn: c, linkName: "link-1", handle: 1, address: "events/repos/widget"})
	table.flow(flowCommand{conn: c, linkName: "nonexistent", credit: 10})

	sub := table["events/repos/widget"]["link-1"]
	assert.EqualValues(t, 0, sub.credit)
}
