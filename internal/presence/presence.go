// Package presence provides online-status collaborators for the core's
// presence publisher. Status writes are best-effort; the caller logs and
// suppresses failures so that session cleanup never blocks on them.
package presence

import (
	"context"

	"github.com/roomcast/server/internal/store"
)

// Status records and reports which users are online.
type Status interface {
	// SetOnline updates a user's online flag.
	SetOnline(ctx context.Context, userID int64, online bool) error

	// OnlineUserIDs returns the ids of all online users.
	OnlineUserIDs(ctx context.Context) ([]int64, error)
}

// StoreStatus keeps online flags in the durable user store.
type StoreStatus struct {
	users store.UserStore
}

// NewStoreStatus wraps a user store as a Status.
func NewStoreStatus(users store.UserStore) *StoreStatus {
	return &StoreStatus{users: users}
}

// SetOnline updates the user's durable online flag.
func (s *StoreStatus) SetOnline(ctx context.Context, userID int64, online bool) error {
	return s.users.SetUserOnline(ctx, userID, online)
}

// OnlineUserIDs returns the ids of users whose online flag is set.
func (s *StoreStatus) OnlineUserIDs(ctx context.Context) ([]int64, error) {
	users, err := s.users.ListOnlineUsers(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}
