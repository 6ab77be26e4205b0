package core

// Session is the live binding between a user and their open connections.
// Room membership lives in the RoomTracker; the session only does
// connection bookkeeping.
type Session struct {
	UserID   int64
	Username string
	conns    map[string]*Client
}

// Registry maps users to sessions and connections to clients. It is owned by
// the hub goroutine and performs no locking of its own; it also emits no
// events, keeping presence policy separate from bookkeeping.
type Registry struct {
	sessions map[int64]*Session
	byConn   map[string]*Client
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		byConn:   make(map[string]*Client),
	}
}

// Register binds a connection to its user's session, creating the session if
// absent. Idempotent per connection id. Returns the session and whether this
// was the user's first open connection.
func (r *Registry) Register(c *Client) (sess *Session, first bool) {
	if existing, ok := r.byConn[c.ID]; ok {
		return r.sessions[existing.UserID], false
	}

	sess, ok := r.sessions[c.UserID]
	if !ok {
		sess = &Session{
			UserID:   c.UserID,
			Username: c.Username,
			conns:    make(map[string]*Client),
		}
		r.sessions[c.UserID] = sess
		first = true
	}
	sess.conns[c.ID] = c
	r.byConn[c.ID] = c
	return sess, first
}

// Unregister removes a connection. Returns the session it belonged to and
// whether it was the user's last connection, in which case the session is
// torn down. Safe to call for connections that were never registered.
func (r *Registry) Unregister(c *Client) (sess *Session, last bool) {
	if _, ok := r.byConn[c.ID]; !ok {
		return nil, false
	}
	delete(r.byConn, c.ID)

	sess, ok := r.sessions[c.UserID]
	if !ok {
		return nil, false
	}
	delete(sess.conns, c.ID)
	if len(sess.conns) == 0 {
		delete(r.sessions, c.UserID)
		return sess, true
	}
	return sess, false
}

// ConnectionsFor returns all live clients of the given user. Empty if the
// user has no session.
func (r *Registry) ConnectionsFor(userID int64) []*Client {
	sess, ok := r.sessions[userID]
	if !ok {
		return nil
	}
	clients := make([]*Client, 0, len(sess.conns))
	for _, c := range sess.conns {
		clients = append(clients, c)
	}
	return clients
}

// Registered reports whether the connection has a session binding.
func (r *Registry) Registered(c *Client) bool {
	_, ok := r.byConn[c.ID]
	return ok
}

// OnlineUsers returns a snapshot of all users with a live session.
func (r *Registry) OnlineUsers() []OnlineUser {
	users := make([]OnlineUser, 0, len(r.sessions))
	for _, sess := range r.sessions {
		users = append(users, OnlineUser{UserID: sess.UserID, Username: sess.Username})
	}
	return users
}
