package core

// Client is one live connection as seen by the core layer. A user may hold
// several clients at once; they share a session.
type Client struct {
	ID       string
	UserID   int64
	Username string
	Commands chan *Command
	Events   chan *Event

	// done is closed by the hub when the client is unregistered.
	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(connID string, userID int64, username string) *Client {
	return &Client{
		ID:       connID,
		UserID:   userID,
		Username: username,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
		done:     make(chan struct{}),
	}
}

// send delivers an event without blocking the caller. Slow consumers drop.
func (c *Client) send(event *Event) {
	select {
	case c.Events <- event:
	default:
	}
}
