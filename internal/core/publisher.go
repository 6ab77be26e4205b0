package core

import (
	"context"

	"github.com/rs/zerolog"
)

// StatusStore records a user's online flag in durable storage. Failures are
// logged and suppressed; presence bookkeeping never blocks on it.
type StatusStore interface {
	SetOnline(ctx context.Context, userID int64, online bool) error
}

// PresencePublisher emits presence events for registry mutations.
//
// Online/offline announcements are global: every connected client hears about
// every session coming up or down. Room joined/left notifications are scoped
// to the affected room's members.
type PresencePublisher struct {
	status StatusStore
	log    zerolog.Logger
}

// NewPresencePublisher builds a publisher. status may be nil.
func NewPresencePublisher(status StatusStore, logger zerolog.Logger) *PresencePublisher {
	return &PresencePublisher{status: status, log: logger}
}

// UserOnline announces a new session to everyone and records the status.
func (p *PresencePublisher) UserOnline(ctx context.Context, sess *Session, everyone []*Client) {
	ev := &Event{Kind: EventUserOnline, UserID: sess.UserID, Username: sess.Username}
	for _, c := range everyone {
		c.send(ev)
	}
	p.setStatus(ctx, sess.UserID, true)
}

// UserOffline announces a torn-down session to everyone and records the status.
func (p *PresencePublisher) UserOffline(ctx context.Context, sess *Session, everyone []*Client) {
	ev := &Event{Kind: EventUserOffline, UserID: sess.UserID, Username: sess.Username}
	for _, c := range everyone {
		c.send(ev)
	}
	p.setStatus(ctx, sess.UserID, false)
}

// Snapshot delivers the current online user list to a single connection.
func (p *PresencePublisher) Snapshot(c *Client, users []OnlineUser) {
	c.send(&Event{Kind: EventOnlineUsers, Users: users})
}

// JoinedRoom notifies the room's members about a join.
func (p *PresencePublisher) JoinedRoom(room string, userID int64, username string, members []*Client) {
	ev := &Event{Kind: EventUserJoinedRoom, Room: room, UserID: userID, Username: username}
	for _, c := range members {
		c.send(ev)
	}
}

// LeftRoom notifies the room's remaining members about a leave.
func (p *PresencePublisher) LeftRoom(room string, userID int64, username string, members []*Client) {
	ev := &Event{Kind: EventUserLeftRoom, Room: room, UserID: userID, Username: username}
	for _, c := range members {
		c.send(ev)
	}
}

func (p *PresencePublisher) setStatus(ctx context.Context, userID int64, online bool) {
	if p.status == nil {
		return
	}
	go func() {
		if err := p.status.SetOnline(ctx, userID, online); err != nil {
			p.log.Warn().Err(err).Int64("user_id", userID).Bool("online", online).
				Msg("presence status update failed")
		}
	}()
}
