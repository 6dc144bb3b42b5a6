package amqpserver

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssorj/stagger/internal/eventbus"
	"github.com/ssorj/stagger/internal/model"
	"github.com/ssorj/stagger/internal/platform/mlog"
)

// TestServer_SubscribeAndReceiveEvent drives the full stack end to end over
// a real TCP connection: protocol negotiation, open/begin/attach/flow, then
// an event published on the bus arriving as a transfer frame.
func TestServer_SubscribeAndReceiveEvent(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	bus := eventbus.New(8)
	s := New("", 0, bus, &mlog.NoneLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.dispatchLoop(ctx)
	go s.acceptLoop(ctx, ln)

	addr := ln.Addr().String()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(protocolHeader)
	require.NoError(t, err)

	header := make([]byte, len(protocolHeader))
	_, err = conn.Read(header)
	require.NoError(t, err)
	assert.Equal(t, protocolHeader, header)

	require.NoError(t, writeFrame(conn, 0, openFrame("test-client"), nil))
	requireReadFrame(t, conn, descOpen)

	require.NoError(t, writeFrame(conn, 0, beginFrame(0, 0), nil))
	requireReadFrame(t, conn, descBegin)

	source := composite{descriptor: descSource, fields: []any{"events/repos/widget"}}
	attach := composite{
		descriptor: descAttach,
		fields:     []any{"sub-1", uint32(0), roleReceiver, nil, nil, source},
	}
	require.NoError(t, writeFrame(conn, 0, attach, nil))
	requireReadFrame(t, conn, descAttach)

	require.NoError(t, writeFrame(conn, 0, flowFrame(0, 0, 10), nil))

	bus.Publish(model.Update{
		EventPath: "events/repos/widget",
		TypeName:  "repo",
		JSON:      []byte(`{"source_url":"https://git.example/widget"}`),
	})

	f := requireReadFrame(t, conn, descTransfer)
	assert.Contains(t, string(f.payload), "source_url")
}

func requireReadFrame(t *testing.T, conn net.Conn, wantDescriptor uint64) *frame {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	f, err := readFrame(conn)
	require.NoError(t, err)
	require.EqualValues(t, wantDescriptor, f.performative.descriptor)

	return f
}

func TestServer_EventsAddressNotSubscribedIsDropped(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	bus := eventbus.New(8)
	s := New("", 0, bus, &mlog.NoneLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.dispatchLoop(ctx)
	go s.acceptLoop(ctx, ln)

	bus.Publish(model.Update{EventPath: "events/repos/nobody-subscribed", JSON: []byte(`{}`)})

	// No subscriber attached; nothing should panic or block the dispatch
	// loop. Confirm it's still responsive by connecting fresh.
	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(protocolHeader)
	require.NoError(t, err)

	header := make([]byte, len(protocolHeader))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(header)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(protocolHeader, header))
}
