package websocket

import (
	"encoding/json"
	"testing"
)

func drain(t *testing.T, c *Client) []WSMessage {
	t.Helper()
	var out []WSMessage
	for {
		select {
		case data, ok := <-c.Outbox():
			if !ok {
				return out
			}
			var msg WSMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestEmitToRoomExcludesConnection(t *testing.T) {
	hub := NewHub()
	a := NewClient("u1", "alice", nil, hub)
	b := NewClient("u2", "bob", nil, hub)
	outsider := NewClient("u3", "carol", nil, hub)
	for _, c := range []*Client{a, b, outsider} {
		hub.Register(c)
	}
	hub.Join(a, GroupRoom("g1"))
	hub.Join(b, GroupRoom("g1"))

	hub.EmitToRoom(GroupRoom("g1"), EventUserJoined, MembershipPayload{UserID: "u1"}, a.ID)

	if got := drain(t, a); len(got) != 0 {
		t.Errorf("excluded connection received %d messages", len(got))
	}
	got := drain(t, b)
	if len(got) != 1 || got[0].Type != EventUserJoined {
		t.Errorf("room member received %+v", got)
	}
	if got := drain(t, outsider); len(got) != 0 {
		t.Errorf("non-member received %d messages", len(got))
	}
}

func TestEmitAllReachesEveryConnection(t *testing.T) {
	hub := NewHub()
	a := NewClient("u1", "alice", nil, hub)
	b := NewClient("u2", "bob", nil, hub)
	hub.Register(a)
	hub.Register(b)

	hub.EmitAll(EventUserStatusChanged, StatusChangedPayload{UserID: "u1", IsOnline: true})

	for _, c := range []*Client{a, b} {
		if got := drain(t, c); len(got) != 1 {
			t.Errorf("client %s received %d messages, want 1", c.UserID, len(got))
		}
	}
}

func TestJoinLeaveAndUnregister(t *testing.T) {
	hub := NewHub()
	a := NewClient("u1", "alice", nil, hub)

	hub.Join(a, GroupRoom("g1"))
	if hub.InRoom(a, GroupRoom("g1")) {
		t.Fatal("unregistered client must not join rooms")
	}

	hub.Register(a)
	hub.Join(a, GroupRoom("g1"))
	hub.Join(a, GroupRoom("g1"))
	hub.Join(a, AdminRoom)
	if hub.RoomSize(GroupRoom("g1")) != 1 {
		t.Errorf("RoomSize = %d, want 1", hub.RoomSize(GroupRoom("g1")))
	}

	hub.Leave(a, GroupRoom("g1"))
	if hub.InRoom(a, GroupRoom("g1")) {
		t.Error("client still in room after Leave")
	}

	if !hub.Unregister(a) {
		t.Fatal("Unregister() = false for registered client")
	}
	if hub.Unregister(a) {
		t.Error("second Unregister() should report false")
	}
	if hub.RoomSize(AdminRoom) != 0 {
		t.Error("unregister should remove the client from every room")
	}
	if _, ok := <-a.Outbox(); ok {
		t.Error("outbox should be closed after unregister")
	}

	// Emitting after unregister must not panic on the closed channel
	hub.EmitAll(EventUserOffline, nil)
}

func TestOnlineUsersDistinct(t *testing.T) {
	hub := NewHub()
	hub.Register(NewClient("u1", "alice", nil, hub))
	hub.Register(NewClient("u1", "alice", nil, hub))
	hub.Register(NewClient("u2", "bob", nil, hub))

	if hub.GetConnectionCount() != 3 {
		t.Errorf("GetConnectionCount() = %d, want 3", hub.GetConnectionCount())
	}
	if len(hub.GetOnlineUsers()) != 2 {
		t.Errorf("GetOnlineUsers() = %v, want 2 users", hub.GetOnlineUsers())
	}
	if !hub.IsUserOnline("u2") || hub.IsUserOnline("u9") {
		t.Error("IsUserOnline mismatch")
	}
}
