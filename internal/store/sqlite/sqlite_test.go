package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/roomcast/server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createUser(t *testing.T, s *SQLiteStore, username string) *store.User {
	t.Helper()

	user, err := s.CreateUser(context.Background(), username, "hash")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func saveRoomMessage(t *testing.T, s *SQLiteStore, senderID int64, room, content string, at time.Time) int64 {
	t.Helper()

	id, err := s.SaveMessage(context.Background(), &store.Message{
		SenderID:  senderID,
		Room:      room,
		Content:   content,
		Type:      store.MessageTypeText,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("failed to save message: %v", err)
	}
	return id
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	if alice.ID == 0 || alice.Username != "alice" {
		t.Fatalf("unexpected user: %+v", alice)
	}

	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != alice.ID {
		t.Fatalf("expected id %d, got %d", alice.ID, byName.ID)
	}

	if _, err := s.CreateUser(ctx, "alice", "other"); err == nil {
		t.Fatal("expected duplicate username to fail")
	}
	if _, err := s.GetUserByID(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOnlineFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	createUser(t, s, "bob")

	if err := s.SetUserOnline(ctx, alice.ID, true); err != nil {
		t.Fatalf("set online: %v", err)
	}
	online, err := s.ListOnlineUsers(ctx)
	if err != nil {
		t.Fatalf("list online: %v", err)
	}
	if len(online) != 1 || online[0].Username != "alice" {
		t.Fatalf("expected alice online only, got %+v", online)
	}

	if err := s.SetUserOnline(ctx, alice.ID, false); err != nil {
		t.Fatalf("set offline: %v", err)
	}
	online, err = s.ListOnlineUsers(ctx)
	if err != nil {
		t.Fatalf("list online: %v", err)
	}
	if len(online) != 0 {
		t.Fatalf("expected nobody online, got %+v", online)
	}
}

func TestRoomSeedAndCreate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	general, err := s.GetRoomByName(ctx, "general")
	if err != nil {
		t.Fatalf("expected seeded general room: %v", err)
	}
	if general.Type != store.RoomTypePublic {
		t.Fatalf("expected public room, got %q", general.Type)
	}

	alice := createUser(t, s, "alice")
	dev, err := s.CreateRoom(ctx, "dev", store.RoomTypePublic, &alice.ID)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if dev.OwnerID == nil || *dev.OwnerID != alice.ID {
		t.Fatalf("expected owner %d, got %+v", alice.ID, dev.OwnerID)
	}

	if _, err := s.CreateRoom(ctx, "dev", store.RoomTypePublic, nil); err == nil {
		t.Fatal("expected duplicate room name to fail")
	}

	rooms, err := s.ListRooms(ctx)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
}

func TestSaveAndGetMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	id := saveRoomMessage(t, s, alice.ID, "general", "hello", time.Now())

	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if msg.SenderID != alice.ID || msg.SenderName != "alice" {
		t.Fatalf("unexpected sender: %+v", msg)
	}
	if msg.Room != "general" || msg.ReceiverID != nil || msg.Content != "hello" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Read || msg.ReadAt != nil {
		t.Fatalf("new message must be unread: %+v", msg)
	}

	if _, err := s.GetMessage(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMessageAddressingConstraint(t *testing.T) {
	s := newTestStore(t)
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	// Neither room nor receiver violates the check constraint.
	if _, err := s.SaveMessage(context.Background(), &store.Message{
		SenderID:  alice.ID,
		Content:   "nowhere",
		Type:      store.MessageTypeText,
		CreatedAt: time.Now(),
	}); err == nil {
		t.Fatal("expected unaddressed message to fail")
	}

	// Both set violates it too.
	if _, err := s.SaveMessage(context.Background(), &store.Message{
		SenderID:   alice.ID,
		ReceiverID: &bob.ID,
		Room:       "general",
		Content:    "everywhere",
		Type:       store.MessageTypeText,
		CreatedAt:  time.Now(),
	}); err == nil {
		t.Fatal("expected doubly addressed message to fail")
	}
}

func TestMarkMessageRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	id := saveRoomMessage(t, s, alice.ID, "general", "hello", time.Now())

	msg, changed, err := s.MarkMessageRead(ctx, id)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !changed {
		t.Fatal("first mark should report a transition")
	}
	if !msg.Read || msg.ReadAt == nil {
		t.Fatalf("expected read flag and timestamp: %+v", msg)
	}

	_, changed, err = s.MarkMessageRead(ctx, id)
	if err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if changed {
		t.Fatal("second mark must be a no-op")
	}

	if _, _, err := s.MarkMessageRead(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddReaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	id := saveRoomMessage(t, s, alice.ID, "general", "hello", time.Now())

	added, err := s.AddReaction(ctx, id, "👍", bob.ID)
	if err != nil {
		t.Fatalf("add reaction: %v", err)
	}
	if !added {
		t.Fatal("first reaction should be newly added")
	}

	added, err = s.AddReaction(ctx, id, "👍", bob.ID)
	if err != nil {
		t.Fatalf("repeat reaction: %v", err)
	}
	if added {
		t.Fatal("repeat reaction must be a no-op")
	}

	if _, err := s.AddReaction(ctx, 999, "👍", bob.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if got := msg.Reactions["👍"]; len(got) != 1 || got[0] != bob.ID {
		t.Fatalf("expected bob's reaction, got %+v", msg.Reactions)
	}
}

func TestListRoomMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	base := time.Now().Add(-time.Minute)
	saveRoomMessage(t, s, alice.ID, "general", "one", base)
	saveRoomMessage(t, s, alice.ID, "general", "two", base.Add(time.Second))
	saveRoomMessage(t, s, alice.ID, "general", "three", base.Add(2*time.Second))
	saveRoomMessage(t, s, alice.ID, "dev", "elsewhere", base.Add(3*time.Second))

	msgs, err := s.ListRoomMessages(ctx, "general", 2)
	if err != nil {
		t.Fatalf("list room messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	// The most recent two, oldest first.
	if msgs[0].Content != "two" || msgs[1].Content != "three" {
		t.Fatalf("unexpected order: %q, %q", msgs[0].Content, msgs[1].Content)
	}
}

func TestListDirectMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	carol := createUser(t, s, "carol")

	base := time.Now().Add(-time.Minute)
	save := func(from int64, to int64, content string, at time.Time) {
		t.Helper()
		if _, err := s.SaveMessage(ctx, &store.Message{
			SenderID:   from,
			ReceiverID: &to,
			Content:    content,
			Type:       store.MessageTypeText,
			CreatedAt:  at,
		}); err != nil {
			t.Fatalf("save direct message: %v", err)
		}
	}
	save(alice.ID, bob.ID, "hi bob", base)
	save(bob.ID, alice.ID, "hi alice", base.Add(time.Second))
	save(alice.ID, carol.ID, "hi carol", base.Add(2*time.Second))

	msgs, err := s.ListDirectMessages(ctx, alice.ID, bob.ID, 10)
	if err != nil {
		t.Fatalf("list direct messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages in the alice/bob thread, got %d", len(msgs))
	}
	if msgs[0].Content != "hi bob" || msgs[1].Content != "hi alice" {
		t.Fatalf("unexpected order: %q, %q", msgs[0].Content, msgs[1].Content)
	}
}
