// Package eventbus carries object-update events from the model to the AMQP
// surface across a goroutine boundary, the Go analogue of the reactor
// event-injection primitive a single-threaded AMQP runtime needs to receive
// notifications from other threads.
package eventbus

import "github.com/ssorj/stagger/internal/model"

// Bus is an in-process channel of model.Update events. It implements
// model.Publisher; the AMQP server is the sole consumer, draining Events on
// its own event loop goroutine.
type Bus struct {
	events chan model.Update
}

// New creates a Bus with the given channel capacity.
func New(capacity int) *Bus {
	return &Bus{events: make(chan model.Update, capacity)}
}

// Publish implements model.Publisher. It never blocks: when the channel is
// full the event is dropped, since a subscriber that missed a notification
// re-reads the current state via HTTP on reconnect.
func (b *Bus) Publish(u model.Update) {
	select {
	case b.events <- u:
	default:
	}
}

// Events returns the channel the AMQP server drains.
func (b *Bus) Events() <-chan model.Update {
	return b.events
}
