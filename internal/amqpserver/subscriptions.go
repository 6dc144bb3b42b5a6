package amqpserver

import "github.com/ssorj/stagger/internal/model"

// subscription is one attached sender-side link: the server sends, the
// remote end receives. It lives entirely on the server's dispatch
// goroutine, so no locking is needed around its fields.
type subscription struct {
	conn          *conn
	linkName      string
	handle        uint32
	address       string
	credit        uint32
	deliveryCount uint32
}

// wildcardAddress is the fixed address that receives every update
// regardless of path, mirroring the single-process wildcard the original
// service supports alongside exact-path subscriptions.
const wildcardAddress = "events"

// command is sent from a connection's read loop to the dispatch loop,
// which owns every subscription and is therefore the only goroutine
// allowed to mutate the table: the one-writer discipline the spec's
// single-threaded AMQP event loop describes.
type command interface{ isCommand() }

type attachCommand struct {
	conn     *conn
	linkName string
	handle   uint32
	address  string
}

type flowCommand struct {
	conn     *conn
	linkName string
	credit   uint32
}

type detachCommand struct {
	conn     *conn
	linkName string
}

type connClosedCommand struct {
	conn *conn
}

func (attachCommand) isCommand()     {}
func (flowCommand) isCommand()       {}
func (detachCommand) isCommand()     {}
func (connClosedCommand) isCommand() {}

// subscriptionTable is {address -> {linkName -> subscription}}, exactly the
// shape the link-lifecycle contract describes.
type subscriptionTable map[string]map[string]*subscription

func (t subscriptionTable) attach(cmd attachCommand) {
	byLink, ok := t[cmd.address]
	if !ok {
		byLink = make(map[string]*subscription)
		t[cmd.address] = byLink
	}

	byLink[cmd.linkName] = &subscription{
		conn:     cmd.conn,
		linkName: cmd.linkName,
		handle:   cmd.handle,
		address:  cmd.address,
	}
}

func (t subscriptionTable) flow(cmd flowCommand) {
	for _, byLink := range t {
		if sub, ok := byLink[cmd.linkName]; ok && sub.conn == cmd.conn {
			sub.credit = cmd.credit
			return
		}
	}
}

func (t subscriptionTable) detach(cmd detachCommand) {
	for _, byLink := range t {
		delete(byLink, cmd.linkName)
	}
}

func (t subscriptionTable) connClosed(c *conn) {
	for _, byLink := range t {
		for name, sub := range byLink {
			if sub.conn == c {
				delete(byLink, name)
			}
		}
	}
}

// deliver sends u to every subscription at its exact event path, plus every
// subscription at the wildcard address. Links with no credit are skipped;
// the message is simply dropped for that subscriber, per the no-queueing
// policy.
func (t subscriptionTable) deliver(u model.Update) {
	t.deliverTo(u, u.EventPath)

	if u.EventPath != wildcardAddress {
		t.deliverTo(u, wildcardAddress)
	}
}

func (t subscriptionTable) deliverTo(u model.Update, address string) {
	for _, sub := range t[address] {
		if sub.credit == 0 {
			continue
		}

		if err := sub.conn.sendUpdate(sub, u); err != nil {
			sub.conn.logger.Warnf("amqp: dropping update for %s: %s", sub.linkName, err)
			continue
		}

		sub.credit--
		sub.deliveryCount++
	}
}
