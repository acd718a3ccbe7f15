package domain

// Broadcaster defines the interface for pushing round events to spectators
type Broadcaster interface {
	// Broadcast sends a message to all connected clients
	Broadcast(event interface{})
}
