package core

import "sync"

// RoomTracker keeps the per-room occupant sets. Rooms are created implicitly
// on first join and the label persists even when membership becomes empty.
//
// Mutations happen only on the hub goroutine; the mutex exists so that read
// accessors can be consumed concurrently by the REST layer.
type RoomTracker struct {
	mu     sync.RWMutex
	rooms  map[string]map[int64]struct{}
	byUser map[int64]map[string]struct{}
}

// NewRoomTracker constructs an empty tracker.
func NewRoomTracker() *RoomTracker {
	return &RoomTracker{
		rooms:  make(map[string]map[int64]struct{}),
		byUser: make(map[int64]map[string]struct{}),
	}
}

// Join adds the user to the room. Returns true if newly added.
func (t *RoomTracker) Join(userID int64, room string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.rooms[room]
	if !ok {
		members = make(map[int64]struct{})
		t.rooms[room] = members
	}
	if _, ok := members[userID]; ok {
		return false
	}
	members[userID] = struct{}{}

	rooms, ok := t.byUser[userID]
	if !ok {
		rooms = make(map[string]struct{})
		t.byUser[userID] = rooms
	}
	rooms[room] = struct{}{}
	return true
}

// Leave removes the user from the room. Returns true if actually removed.
func (t *RoomTracker) Leave(userID int64, room string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[userID]; !ok {
		return false
	}
	delete(members, userID)
	if rooms, ok := t.byUser[userID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(t.byUser, userID)
		}
	}
	return true
}

// MembersOf returns the user ids currently in the room.
func (t *RoomTracker) MembersOf(room string) []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	members := make([]int64, 0, len(t.rooms[room]))
	for id := range t.rooms[room] {
		members = append(members, id)
	}
	return members
}

// RoomsOf returns the rooms the user currently occupies.
func (t *RoomTracker) RoomsOf(userID int64) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rooms := make([]string, 0, len(t.byUser[userID]))
	for name := range t.byUser[userID] {
		rooms = append(rooms, name)
	}
	return rooms
}

// Member reports whether the user occupies the room.
func (t *RoomTracker) Member(userID int64, room string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.rooms[room][userID]
	return ok
}
