package livefeed

import "reunite/backend/internal/models"

// Client is the interface for any kind of feed subscriber. It abstracts the
// underlying connection so the hub can manage different client types
// uniformly.
type Client interface {
	// GetSubscriberID returns the unique identifier of the admin behind the
	// connection.
	GetSubscriberID() string

	// GetSendChannel returns the channel on which the hub delivers match
	// events to this client. It is a send-only channel.
	GetSendChannel() chan<- models.MatchEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's connection and channels.
	Close()
}
