package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/roomcast/server/internal/store"
)

// Options configure hub behavior.
type Options struct {
	// DefaultRoom is joined automatically on session registration.
	// Empty disables the implicit join.
	DefaultRoom string
}

// Hub coordinates sessions, rooms and message fan-out. All registry and
// tracker mutations happen on the single Run goroutine; transports interact
// with it through channels only. Store calls run in spawned goroutines and
// their completions re-enter the loop, where broadcast targets are resolved
// against current state rather than the state at validation time.
type Hub struct {
	messages store.MessageStore
	presence *PresencePublisher
	opts     Options
	log      zerolog.Logger

	registry *Registry
	tracker  *RoomTracker
	conns    map[string]*Client

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	saved      chan savedResult
	reads      chan readResult
	reactions  chan reactionResult
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

type savedResult struct {
	client *Client
	msg    *Message
	err    error
}

type readResult struct {
	client  *Client
	msg     *Message
	changed bool
	err     *CoreError
}

type reactionResult struct {
	client   *Client
	msg      *Message
	reaction string
	added    bool
	err      *CoreError
}

// NewHub creates a hub. messages may be nil only in tests that never send.
func NewHub(messages store.MessageStore, presence *PresencePublisher, opts Options, logger zerolog.Logger) *Hub {
	return &Hub{
		messages:   messages,
		presence:   presence,
		opts:       opts,
		log:        logger,
		registry:   NewRegistry(),
		tracker:    NewRoomTracker(),
		conns:      make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan clientCommand),
		saved:      make(chan savedResult),
		reads:      make(chan readResult),
		reactions:  make(chan reactionResult),
	}
}

// RegisterClient hands a new connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient removes a connection and runs the disconnect cascade.
// Safe to call more than once and for clients that never joined.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// MembersOf exposes live room occupancy to read-only consumers.
func (h *Hub) MembersOf(room string) []int64 {
	return h.tracker.MembersOf(room)
}

// RoomsOf exposes a user's live room set to read-only consumers.
func (h *Hub) RoomsOf(userID int64) []string {
	return h.tracker.RoomsOf(userID)
}

// Run processes hub traffic until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(ctx, c)
		case c := <-h.unregister:
			h.handleUnregister(ctx, c)
		case cc := <-h.commands:
			h.handleCommand(ctx, cc.client, cc.cmd)
		case res := <-h.saved:
			h.handleSaved(res)
		case res := <-h.reads:
			h.handleRead(res)
		case res := <-h.reactions:
			h.handleReaction(res)
		}
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) {
	if _, ok := h.conns[c.ID]; ok {
		return
	}
	h.conns[c.ID] = c
	go h.forward(ctx, c)
}

// forward pipes one client's commands into the hub loop.
func (h *Hub) forward(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}
}

func (h *Hub) handleUnregister(ctx context.Context, c *Client) {
	if _, ok := h.conns[c.ID]; !ok {
		return
	}
	delete(h.conns, c.ID)
	close(c.done)

	sess, last := h.registry.Unregister(c)
	if sess == nil || !last {
		return
	}

	// Last connection gone: release every room and go offline.
	for _, room := range h.tracker.RoomsOf(sess.UserID) {
		h.tracker.Leave(sess.UserID, room)
		h.presence.LeftRoom(room, sess.UserID, sess.Username, h.roomClients(room))
	}
	h.presence.UserOffline(ctx, sess, h.allClients())
	h.log.Debug().Int64("user_id", sess.UserID).Str("conn_id", c.ID).Msg("session torn down")
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoin:
		h.handleJoin(ctx, c)
	case CommandJoinRoom:
		h.handleJoinRoom(c, cmd.Room)
	case CommandLeaveRoom:
		h.handleLeaveRoom(c, cmd.Room)
	case CommandSendMessage:
		h.handleSendMessage(ctx, c, cmd)
	case CommandTyping:
		h.handleTyping(c, cmd)
	case CommandMarkRead:
		h.handleMarkRead(ctx, c, cmd.MessageID)
	case CommandAddReaction:
		h.handleAddReaction(ctx, c, cmd)
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client) {
	sess, first := h.registry.Register(c)
	if h.opts.DefaultRoom != "" {
		h.tracker.Join(c.UserID, h.opts.DefaultRoom)
	}
	if first {
		h.presence.UserOnline(ctx, sess, h.allClients())
	}
	h.presence.Snapshot(c, h.registry.OnlineUsers())
	h.log.Debug().Int64("user_id", c.UserID).Str("conn_id", c.ID).Bool("first_conn", first).Msg("session joined")
}

func (h *Hub) handleJoinRoom(c *Client, room string) {
	if !h.registry.Registered(c) {
		c.send(errEvent(ErrCodeUnauthorized, "join before using rooms"))
		return
	}
	if room == "" {
		c.send(errEvent(ErrCodeInvalidMessage, "room is required"))
		return
	}
	newly := h.tracker.Join(c.UserID, room)
	c.send(&Event{Kind: EventRoomJoined, Room: room})
	if newly {
		h.presence.JoinedRoom(room, c.UserID, c.Username, h.roomClientsExcept(room, c.UserID))
	}
}

func (h *Hub) handleLeaveRoom(c *Client, room string) {
	if !h.registry.Registered(c) {
		c.send(errEvent(ErrCodeUnauthorized, "join before using rooms"))
		return
	}
	if h.tracker.Leave(c.UserID, room) {
		h.presence.LeftRoom(room, c.UserID, c.Username, h.roomClients(room))
	}
}

func (h *Hub) handleSendMessage(ctx context.Context, c *Client, cmd *Command) {
	if !h.registry.Registered(c) {
		c.send(errEvent(ErrCodeUnauthorized, "join before sending messages"))
		return
	}

	msg := cmd.Message
	msg.SenderID = c.UserID
	msg.SenderName = c.Username
	if strings.TrimSpace(msg.Content) == "" {
		c.send(errEvent(ErrCodeInvalidMessage, "content is required"))
		return
	}
	if (msg.Room == "") == (msg.ReceiverID == nil) {
		c.send(errEvent(ErrCodeInvalidMessage, "exactly one of room or receiver is required"))
		return
	}
	if msg.Room != "" && !h.tracker.Member(c.UserID, msg.Room) {
		c.send(errEvent(ErrCodeNotInRoom, "not in room "+msg.Room))
		return
	}
	if msg.Type == "" {
		msg.Type = MessageTypeText
	}
	msg.CreatedAt = time.Now()

	// Persist off the hub goroutine; the completion re-enters the loop and
	// resolves recipients from the membership at that point.
	go func() {
		id, err := h.messages.SaveMessage(ctx, toStoreMessage(&msg))
		msg.ID = id
		select {
		case h.saved <- savedResult{client: c, msg: &msg, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (h *Hub) handleSaved(res savedResult) {
	if res.err != nil {
		h.log.Error().Err(res.err).Int64("sender_id", res.msg.SenderID).Msg("persist message failed")
		res.client.send(errEvent(ErrCodePersistenceFailed, "failed to send message"))
		return
	}

	if res.msg.Direct() {
		ev := &Event{Kind: EventPrivateMessage, Message: res.msg}
		for _, rc := range h.registry.ConnectionsFor(*res.msg.ReceiverID) {
			rc.send(ev)
		}
		// Sender echo keeps all of the sender's connections consistent.
		if *res.msg.ReceiverID != res.msg.SenderID {
			for _, sc := range h.registry.ConnectionsFor(res.msg.SenderID) {
				sc.send(ev)
			}
		}
		return
	}

	ev := &Event{Kind: EventReceiveMessage, Room: res.msg.Room, Message: res.msg}
	for _, rc := range h.roomClients(res.msg.Room) {
		rc.send(ev)
	}
}

func (h *Hub) handleTyping(c *Client, cmd *Command) {
	if !h.registry.Registered(c) {
		return
	}
	if cmd.ReceiverID != nil {
		ev := &Event{Kind: EventTyping, UserID: c.UserID, Username: c.Username, IsTyping: cmd.IsTyping, Private: true}
		for _, rc := range h.registry.ConnectionsFor(*cmd.ReceiverID) {
			rc.send(ev)
		}
		return
	}
	room := cmd.Room
	if room == "" {
		room = h.opts.DefaultRoom
	}
	if room == "" {
		return
	}
	ev := &Event{Kind: EventTyping, Room: room, UserID: c.UserID, Username: c.Username, IsTyping: cmd.IsTyping}
	for _, rc := range h.roomClientsExcept(room, c.UserID) {
		rc.send(ev)
	}
}

func (h *Hub) handleMarkRead(ctx context.Context, c *Client, messageID int64) {
	if !h.registry.Registered(c) {
		c.send(errEvent(ErrCodeUnauthorized, "join before marking messages read"))
		return
	}

	// Membership snapshot for the permission check is taken now; the store
	// round-trip must not hold up the loop.
	rooms := make(map[string]struct{})
	for _, room := range h.tracker.RoomsOf(c.UserID) {
		rooms[room] = struct{}{}
	}

	go func() {
		res := readResult{client: c}
		rec, err := h.messages.GetMessage(ctx, messageID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			res.err = coreError(ErrCodeNotFound, "unknown message")
		case err != nil:
			res.err = coreError(ErrCodePersistenceFailed, "failed to mark message read")
		}
		if res.err == nil {
			allowed := false
			if rec.ReceiverID != nil {
				allowed = *rec.ReceiverID == c.UserID
			} else {
				_, allowed = rooms[rec.Room]
			}
			if !allowed {
				res.err = coreError(ErrCodeUnauthorized, "not a recipient of this message")
			}
		}
		if res.err == nil {
			updated, changed, err := h.messages.MarkMessageRead(ctx, messageID)
			if err != nil {
				res.err = coreError(ErrCodePersistenceFailed, "failed to mark message read")
			} else {
				res.msg = fromStoreMessage(updated)
				res.changed = changed
			}
		}
		select {
		case h.reads <- res:
		case <-ctx.Done():
		}
	}()
}

func (h *Hub) handleRead(res readResult) {
	if res.err != nil {
		res.client.send(&Event{Kind: EventError, Error: res.err})
		return
	}
	if !res.changed {
		// Already read; idempotent no-op.
		return
	}
	ev := &Event{
		Kind:      EventMessageRead,
		MessageID: res.msg.ID,
		ReadBy:    res.client.UserID,
	}
	if res.msg.ReadAt != nil {
		ev.ReadAt = *res.msg.ReadAt
	}
	for _, sc := range h.registry.ConnectionsFor(res.msg.SenderID) {
		sc.send(ev)
	}
}

func (h *Hub) handleAddReaction(ctx context.Context, c *Client, cmd *Command) {
	if !h.registry.Registered(c) {
		c.send(errEvent(ErrCodeUnauthorized, "join before reacting"))
		return
	}
	if cmd.Reaction == "" {
		c.send(errEvent(ErrCodeInvalidMessage, "reaction is required"))
		return
	}

	go func() {
		res := reactionResult{client: c, reaction: cmd.Reaction}
		rec, err := h.messages.GetMessage(ctx, cmd.MessageID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			res.err = coreError(ErrCodeNotFound, "unknown message")
		case err != nil:
			res.err = coreError(ErrCodePersistenceFailed, "failed to add reaction")
		case rec.ReceiverID != nil:
			res.err = coreError(ErrCodeInvalidMessage, "reactions are supported on room messages only")
		}
		if res.err == nil {
			added, err := h.messages.AddReaction(ctx, cmd.MessageID, cmd.Reaction, c.UserID)
			if err != nil {
				res.err = coreError(ErrCodePersistenceFailed, "failed to add reaction")
			} else {
				res.msg = fromStoreMessage(rec)
				res.added = added
			}
		}
		select {
		case h.reactions <- res:
		case <-ctx.Done():
		}
	}()
}

func (h *Hub) handleReaction(res reactionResult) {
	if res.err != nil {
		res.client.send(&Event{Kind: EventError, Error: res.err})
		return
	}
	if !res.added {
		// Duplicate reaction; set unchanged, nothing to broadcast.
		return
	}
	ev := &Event{
		Kind:      EventMessageReaction,
		Room:      res.msg.Room,
		MessageID: res.msg.ID,
		Reaction:  res.reaction,
		UserID:    res.client.UserID,
		Username:  res.client.Username,
	}
	for _, rc := range h.roomClients(res.msg.Room) {
		rc.send(ev)
	}
}

func (h *Hub) allClients() []*Client {
	clients := make([]*Client, 0, len(h.conns))
	for _, c := range h.conns {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) roomClients(room string) []*Client {
	var clients []*Client
	for _, userID := range h.tracker.MembersOf(room) {
		clients = append(clients, h.registry.ConnectionsFor(userID)...)
	}
	return clients
}

func (h *Hub) roomClientsExcept(room string, userID int64) []*Client {
	var clients []*Client
	for _, memberID := range h.tracker.MembersOf(room) {
		if memberID == userID {
			continue
		}
		clients = append(clients, h.registry.ConnectionsFor(memberID)...)
	}
	return clients
}

func errEvent(code, msg string) *Event {
	return &Event{Kind: EventError, Error: coreError(code, msg)}
}

func toStoreMessage(m *Message) *store.Message {
	return &store.Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		ReceiverID: m.ReceiverID,
		Room:       m.Room,
		Content:    m.Content,
		Type:       store.MessageType(m.Type),
		FileURL:    m.FileURL,
		FileName:   m.FileName,
		Read:       m.Read,
		ReadAt:     m.ReadAt,
		CreatedAt:  m.CreatedAt,
	}
}

func fromStoreMessage(m *store.Message) *Message {
	return &Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		ReceiverID: m.ReceiverID,
		Room:       m.Room,
		Content:    m.Content,
		Type:       MessageType(m.Type),
		FileURL:    m.FileURL,
		FileName:   m.FileName,
		Read:       m.Read,
		ReadAt:     m.ReadAt,
		CreatedAt:  m.CreatedAt,
	}
}
