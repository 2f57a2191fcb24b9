package realtime

// identityRoomPrefix keys the implicit self-addressed room every identity is
// placed in on connect. Directed delivery (signaling, DMs) is a plain room
// broadcast to this room, which also covers one identity on multiple devices.
const identityRoomPrefix = "user:"

func IdentityRoom(userID string) string {
	return identityRoomPrefix + userID
}

type Room struct {
	ID      string
	Host    string
	Clients map[*Client]bool
}

func (r *Room) isIdentityRoom() bool {
	return len(r.ID) > len(identityRoomPrefix) && r.ID[:len(identityRoomPrefix)] == identityRoomPrefix
}

type RoomInfo struct {
	ID      string   `json:"id"`
	Host    string   `json:"host,omitempty"`
	Members []string `json:"members"`
}
