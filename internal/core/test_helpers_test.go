package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/roomcast/server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func expectNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// fakeMessageStore is an in-memory store.MessageStore for hub tests.
type fakeMessageStore struct {
	mu       sync.Mutex
	nextID   int64
	messages map[int64]*store.Message
	saveErr  error
	// saveGate, when non-nil, blocks SaveMessage until it is closed.
	saveGate chan struct{}
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: make(map[int64]*store.Message)}
}

func (f *fakeMessageStore) SaveMessage(ctx context.Context, msg *store.Message) (int64, error) {
	f.mu.Lock()
	gate := f.saveGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.nextID++
	stored := *msg
	stored.ID = f.nextID
	f.messages[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeMessageStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *msg
	return &clone, nil
}

func (f *fakeMessageStore) MarkMessageRead(ctx context.Context, id int64) (*store.Message, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, false, store.ErrNotFound
	}
	changed := false
	if !msg.Read {
		now := time.Now()
		msg.Read = true
		msg.ReadAt = &now
		changed = true
	}
	clone := *msg
	return &clone, changed, nil
}

func (f *fakeMessageStore) AddReaction(ctx context.Context, id int64, reaction string, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]int64)
	}
	for _, existing := range msg.Reactions[reaction] {
		if existing == userID {
			return false, nil
		}
	}
	msg.Reactions[reaction] = append(msg.Reactions[reaction], userID)
	return true, nil
}

func (f *fakeMessageStore) ListRoomMessages(ctx context.Context, room string, limit int) ([]*store.Message, error) {
	return nil, nil
}

func (f *fakeMessageStore) ListDirectMessages(ctx context.Context, userA, userB int64, limit int) ([]*store.Message, error) {
	return nil, nil
}

func newTestHub(messages store.MessageStore, defaultRoom string) *Hub {
	publisher := NewPresencePublisher(nil, zerolog.Nop())
	return NewHub(messages, publisher, Options{DefaultRoom: defaultRoom}, zerolog.Nop())
}

func join(c *Client) {
	c.Commands <- &Command{Kind: CommandJoin}
}
