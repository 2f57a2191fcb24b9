// Package playback implements the client half of the watch party
// synchronization protocol: the local player state machine that consumes
// relayed actions, host heartbeats and directed sync replies. The server
// never holds playback state; every client runs one of these and the host's
// is the source of truth.
package playback

import (
	"context"
	"math"
	"time"

	"social-realtime-backend/internal/realtime"
)

const (
	// ActionTolerance is the drift allowed before an action resyncs the clock.
	ActionTolerance = 1.0
	// HeartbeatTolerance is the wider drift allowed on periodic heartbeats.
	HeartbeatTolerance = 2.0
	// HeartbeatInterval is how often the host publishes its state.
	HeartbeatInterval = 2000 * time.Millisecond
)

type Player struct {
	selfID string
	now    func() time.Time

	position   float64 // seconds at lastUpdate
	playing    bool
	lastUpdate time.Time
}

func NewPlayer(selfID string, now func() time.Time) *Player {
	if now == nil {
		now = time.Now
	}
	return &Player{
		selfID:     selfID,
		now:        now,
		lastUpdate: now(),
	}
}

// Position extrapolates the current playback time from the last anchor.
func (p *Player) Position() float64 {
	if !p.playing {
		return p.position
	}
	return p.position + p.now().Sub(p.lastUpdate).Seconds()
}

func (p *Player) IsPlaying() bool {
	return p.playing
}

// Set anchors local state, used when the local user drives the player
// directly (the host path).
func (p *Player) Set(currentTime float64, playing bool) {
	p.position = currentTime
	p.playing = playing
	p.lastUpdate = p.now()
}

// ApplyAction processes a relayed play/pause/seek. Actions originated by
// this identity are ignored: the relay stamps every broadcast with the
// sender so receivers can drop their own echoes. The clock only resyncs
// when drift exceeds ActionTolerance.
func (p *Player) ApplyAction(action realtime.CinemaActionPayload) {
	if action.SenderID == p.selfID {
		return
	}

	resync := math.Abs(p.Position()-action.CurrentTime) > ActionTolerance

	switch action.Type {
	case "play":
		p.anchor(resync, action.CurrentTime, true)
	case "pause":
		p.anchor(resync, action.CurrentTime, false)
	case "seek":
		p.anchor(resync, action.CurrentTime, p.playing)
	}
}

// ApplyHeartbeat reconciles against the host's periodic state. The
// play/pause flag always follows the host; the clock only when drift
// exceeds HeartbeatTolerance.
func (p *Player) ApplyHeartbeat(hb realtime.CinemaHeartbeatPayload) {
	if hb.SenderID == p.selfID {
		return
	}

	resync := math.Abs(p.Position()-hb.CurrentTime) > HeartbeatTolerance
	p.anchor(resync, hb.CurrentTime, hb.IsPlaying)
}

// ApplySyncState adopts a directed host reply unconditionally, the late
// joiner path.
func (p *Player) ApplySyncState(state realtime.CinemaSyncStatePayload) {
	p.Set(state.CurrentTime, state.IsPlaying)
}

// SyncState snapshots authoritative state for a directed reply to a
// request_sync, the host path.
func (p *Player) SyncState(requesterID string) realtime.CinemaSyncStatePayload {
	return realtime.CinemaSyncStatePayload{
		To:          requesterID,
		CurrentTime: p.Position(),
		IsPlaying:   p.playing,
	}
}

func (p *Player) anchor(resync bool, currentTime float64, playing bool) {
	if resync {
		p.position = currentTime
	} else {
		p.position = p.Position()
	}
	p.playing = playing
	p.lastUpdate = p.now()
}

// RunHeartbeat publishes this player's state every HeartbeatInterval until
// the context is cancelled. Only the room host should run it.
func (p *Player) RunHeartbeat(ctx context.Context, roomID string, emit func(realtime.CinemaHeartbeatPayload)) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit(realtime.CinemaHeartbeatPayload{
				RoomID:      roomID,
				CurrentTime: p.Position(),
				IsPlaying:   p.playing,
			})
		}
	}
}
