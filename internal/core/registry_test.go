package core

import "testing"

func TestRegistrySessionLifecycle(t *testing.T) {
	r := NewRegistry()

	a1 := NewClient("a1", 1, "alice")
	sess, first := r.Register(a1)
	if !first {
		t.Fatal("first connection should create the session")
	}
	if sess.UserID != 1 || sess.Username != "alice" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	a2 := NewClient("a2", 1, "alice")
	if _, first := r.Register(a2); first {
		t.Fatal("second connection must reuse the session")
	}
	if got := len(r.ConnectionsFor(1)); got != 2 {
		t.Fatalf("expected 2 connections, got %d", got)
	}

	if _, last := r.Unregister(a1); last {
		t.Fatal("session must survive while a connection remains")
	}
	if sess, last := r.Unregister(a2); !last || sess == nil {
		t.Fatal("last connection should tear the session down")
	}
	if r.ConnectionsFor(1) != nil {
		t.Fatal("expected no connections after teardown")
	}
}

func TestRegistryIdempotence(t *testing.T) {
	r := NewRegistry()
	c := NewClient("c1", 1, "alice")

	r.Register(c)
	if _, first := r.Register(c); first {
		t.Fatal("re-registering the same connection must not report first")
	}
	if got := len(r.ConnectionsFor(1)); got != 1 {
		t.Fatalf("expected 1 connection after duplicate register, got %d", got)
	}

	r.Unregister(c)
	if sess, last := r.Unregister(c); sess != nil || last {
		t.Fatal("unregistering twice must be a no-op")
	}
}

func TestRegistryOnlineUsers(t *testing.T) {
	r := NewRegistry()
	r.Register(NewClient("a1", 1, "alice"))
	r.Register(NewClient("a2", 1, "alice"))
	r.Register(NewClient("b1", 2, "bob"))

	users := r.OnlineUsers()
	if len(users) != 2 {
		t.Fatalf("expected 2 online users, got %d", len(users))
	}
}
