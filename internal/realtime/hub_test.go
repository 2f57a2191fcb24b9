package realtime

import (
	"testing"
	"time"
)

func startHub() *Hub {
	hub := NewHub()
	go hub.Run()
	return hub
}

func testClient(userID, username string) *Client {
	return newClient(nil, userID, username)
}

func statusEvent(t *testing.T, userID string, online bool) *Event {
	t.Helper()
	payload := StatusChangePayload{UserID: userID, IsOnline: online}
	if !online {
		payload.LastActive = time.Now().UTC().Format(time.RFC3339)
	}
	event, err := NewEvent(EventUserStatusChange, payload)
	if err != nil {
		t.Fatalf("build status event: %v", err)
	}
	return event
}

func recvEvent(t *testing.T, cl *Client) *Event {
	t.Helper()
	select {
	case event, ok := <-cl.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

// barrier round-trips the ops channel so earlier ops are fully applied.
func barrier(hub *Hub) {
	hub.Rooms()
}

func assertNoEvent(t *testing.T, hub *Hub, cl *Client) {
	t.Helper()
	barrier(hub)
	select {
	case event := <-cl.send:
		t.Fatalf("unexpected event %q", event.Name)
	default:
	}
}

func TestJoinNotifiesExistingMembersOnly(t *testing.T) {
	hub := startHub()
	alice := testClient("alice", "Alice")
	bob := testClient("bob", "Bob")
	hub.ops <- registerOp{client: alice}
	hub.ops <- registerOp{client: bob}

	hub.ops <- joinOp{client: alice, roomID: "abc123"}

	notice, _ := NewEvent(EventCinemaUserJoined, CinemaUserJoinedPayload{UserID: "bob", Username: "Bob"})
	hub.ops <- joinOp{client: bob, roomID: "abc123", notice: notice}

	got := recvEvent(t, alice)
	if got.Name != EventCinemaUserJoined {
		t.Fatalf("expected %s, got %s", EventCinemaUserJoined, got.Name)
	}
	assertNoEvent(t, hub, bob)
}

func TestBroadcastSkipsSender(t *testing.T) {
	hub := startHub()
	host := testClient("host", "Host")
	member := testClient("member", "Member")
	hub.ops <- registerOp{client: host}
	hub.ops <- registerOp{client: member}
	hub.ops <- joinOp{client: host, roomID: "abc123"}
	hub.ops <- joinOp{client: member, roomID: "abc123"}

	event, _ := NewEvent(EventCinemaAction, CinemaActionPayload{Type: "play", CurrentTime: 12, RoomID: "abc123", SenderID: "host"})
	hub.ops <- broadcastOp{roomID: "abc123", event: event, skip: host}

	if got := recvEvent(t, member); got.Name != EventCinemaAction {
		t.Fatalf("expected action, got %s", got.Name)
	}
	assertNoEvent(t, hub, host)
}

func TestDirectedDeliveryReachesEveryDeviceOfIdentity(t *testing.T) {
	hub := startHub()
	phone := testClient("bob", "Bob")
	laptop := testClient("bob", "Bob")
	other := testClient("carol", "Carol")
	hub.ops <- registerOp{client: phone}
	hub.ops <- registerOp{client: laptop}
	hub.ops <- registerOp{client: other}

	event, _ := NewEvent(EventCallInvite, map[string]string{"from": "carol"})
	hub.ops <- broadcastOp{roomID: IdentityRoom("bob"), event: event}

	recvEvent(t, phone)
	recvEvent(t, laptop)
	assertNoEvent(t, hub, other)
}

func TestDirectedDeliveryToOfflineIdentityIsSilent(t *testing.T) {
	hub := startHub()
	sender := testClient("alice", "Alice")
	hub.ops <- registerOp{client: sender}

	event, _ := NewEvent(EventCallInvite, map[string]string{"from": "alice"})
	hub.ops <- broadcastOp{roomID: IdentityRoom("ghost"), event: event}

	assertNoEvent(t, hub, sender)
}

func TestPresenceBroadcastExactlyOncePerDisconnectAndReconnect(t *testing.T) {
	hub := startHub()
	watcher := testClient("watcher", "Watcher")
	hub.ops <- registerOp{client: watcher}

	peer := testClient("peer", "Peer")
	hub.ops <- registerOp{client: peer, notice: statusEvent(t, "peer", true)}

	if got := recvEvent(t, watcher); got.Name != EventUserStatusChange {
		t.Fatalf("expected status change, got %s", got.Name)
	}
	assertNoEvent(t, hub, watcher)

	hub.ops <- unregisterOp{client: peer, notice: statusEvent(t, "peer", false)}
	if got := recvEvent(t, watcher); got.Name != EventUserStatusChange {
		t.Fatalf("expected status change, got %s", got.Name)
	}
	assertNoEvent(t, hub, watcher)

	reconnected := testClient("peer", "Peer")
	hub.ops <- registerOp{client: reconnected, notice: statusEvent(t, "peer", true)}
	if got := recvEvent(t, watcher); got.Name != EventUserStatusChange {
		t.Fatalf("expected status change, got %s", got.Name)
	}
	assertNoEvent(t, hub, watcher)
}

func TestUnregisterRemovesConnectionFromEveryRoom(t *testing.T) {
	hub := startHub()
	member := testClient("alice", "Alice")
	hub.ops <- registerOp{client: member}
	hub.ops <- joinOp{client: member, roomID: "abc123"}
	hub.ops <- joinOp{client: member, roomID: "def456"}

	if rooms := hub.Rooms(); len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}

	hub.ops <- unregisterOp{client: member}

	if rooms := hub.Rooms(); len(rooms) != 0 {
		t.Fatalf("expected rooms garbage-collected, got %d", len(rooms))
	}

	// Re-creating an emptied room must be safe.
	again := testClient("alice", "Alice")
	hub.ops <- registerOp{client: again}
	hub.ops <- joinOp{client: again, roomID: "abc123"}
	rooms := hub.Rooms()
	if len(rooms) != 1 || rooms[0].ID != "abc123" {
		t.Fatalf("expected abc123 re-created, got %+v", rooms)
	}
}

func TestRoomHostIsCreator(t *testing.T) {
	hub := startHub()
	host := testClient("henry", "Henry")
	member := testClient("mia", "Mia")
	hub.ops <- registerOp{client: host}
	hub.ops <- registerOp{client: member}
	hub.ops <- joinOp{client: host, roomID: "abc123"}
	hub.ops <- joinOp{client: member, roomID: "abc123"}

	rooms := hub.Rooms()
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(rooms))
	}
	if rooms[0].Host != "henry" {
		t.Fatalf("expected creator as host, got %q", rooms[0].Host)
	}
	if len(rooms[0].Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(rooms[0].Members))
	}
}

func TestSlowConsumerDroppedWithoutLosingOfflineNotice(t *testing.T) {
	hub := startHub()
	watcher := testClient("watcher", "Watcher")
	slow := testClient("slow", "Slow")
	hub.ops <- registerOp{client: watcher}
	hub.ops <- registerOp{client: slow}

	event, _ := NewEvent(EventReceiveMessage, map[string]string{"messageId": "m"})
	for i := 0; i < cap(slow.send)+1; i++ {
		hub.ops <- broadcastOp{roomID: IdentityRoom("slow"), event: event}
	}
	barrier(hub)

	// The read pump eventually winds down and unregisters as usual.
	hub.ops <- unregisterOp{client: slow, notice: statusEvent(t, "slow", false)}

	if got := recvEvent(t, watcher); got.Name != EventUserStatusChange {
		t.Fatalf("expected offline notice, got %s", got.Name)
	}
	assertNoEvent(t, hub, watcher)
}
