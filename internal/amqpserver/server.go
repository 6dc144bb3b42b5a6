// Package amqpserver implements the AMQP 1.0 surface: a listener that
// accepts subscriber connections and fans out model update events to the
// links subscribed at a matching address. No ecosystem AMQP client library
// speaks the 1.0 dialect's server (sending) side, so the wire protocol
// is hand-rolled here: frame.go and codec.go encode and decode exactly the
// primitive types and performatives the subscription contract needs
// (open/begin/attach/flow/transfer/detach/close).
package amqpserver

import (
	"context"
	"fmt"
	"net"

	"github.com/ssorj/stagger/internal/eventbus"
	"github.com/ssorj/stagger/internal/platform"
	"github.com/ssorj/stagger/internal/platform/mlog"
)

// Server owns the subscription table and the single dispatch goroutine
// that mutates it, matching the spec's single-threaded AMQP event loop:
// all link-state changes, and all outbound sends, happen there.
type Server struct {
	Host   string
	Port   int
	Bus    *eventbus.Bus
	Logger mlog.Logger

	commands chan command
}

// New creates a Server listening on host:port, fed update events by bus.
func New(host string, port int, bus *eventbus.Bus, logger mlog.Logger) *Server {
	return &Server{
		Host:     host,
		Port:     port,
		Bus:      bus,
		Logger:   logger,
		commands: make(chan command, 64),
	}
}

// Run implements platform.App: it listens for connections and runs the
// dispatch loop until ctx is canceled.
func (s *Server) Run(ctx context.Context, _ *platform.Launcher) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("amqp: listening on %s: %w", addr, err)
	}

	s.Logger.Infof("amqp: listening on %s", addr)

	go s.acceptLoop(ctx, ln)

	return s.dispatchLoop(ctx)
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			s.Logger.Warnf("amqp: accept failed: %s", err)

			continue
		}

		c := newConn(nc, s.commands, s.Logger)

		go c.serve()
	}
}

func (s *Server) dispatchLoop(ctx context.Context) error {
	subs := make(subscriptionTable)

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-s.Bus.Events():
			subs.deliver(u)
		case cmd := <-s.commands:
			switch c := cmd.(type) {
			case attachCommand:
				subs.attach(c)
				s.Logger.Infof("amqp: subscribed %s at %s", c.linkName, c.address)
			case flowCommand:
				subs.flow(c)
			case detachCommand:
				subs.detach(c)
			case connClosedCommand:
				subs.connClosed(c.conn)
			}
		}
	}
}
