package messaging

import (
	"time"
)

// Message is one delivery routed by a Broker.
type Message struct {
	From      string    // sender id
	To        []string  // recipient ids; empty means broadcast
	Content   any       // payload, []byte for side-channel deliveries
	Timestamp time.Time // when the message was sent
}

// Broker routes messages between subscribed endpoints.
type Broker interface {
	// Publish sends a message to specified recipients
	Publish(msg Message) error
	// Subscribe registers an endpoint to receive messages
	Subscribe(id string, ch chan<- Message) error
	// Unsubscribe removes an endpoint's subscription
	Unsubscribe(id string) error
}
