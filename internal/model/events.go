package model

// Update is emitted once per ancestor, child-first, whenever a node is
// mutated. It carries everything the AMQP surface needs so it never
// re-reads the model outside the lock.
type Update struct {
	EventPath string
	TypeName  string
	Digest    string
	JSON      []byte
}

// Publisher delivers Update events to subscribers. The event bus
// (internal/eventbus) implements it and feeds the AMQP surface; Model
// depends only on this interface so it never imports the AMQP package.
type Publisher interface {
	Publish(Update)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Update) {}
