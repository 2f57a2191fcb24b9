// Package call implements the client-local 1:1 call state machine the
// signaling relay assumes: idle → calling/incoming → connected → ended →
// idle. The server holds no call state; both ends of a call run one of
// these against the relay.
package call

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

type State string

const (
	StateIdle      State = "idle"
	StateCalling   State = "calling"
	StateIncoming  State = "incoming"
	StateConnected State = "connected"
	StateEnded     State = "ended"
)

// DefaultEndedDelay is how long the transient ended state is displayed
// before the machine returns to idle.
const DefaultEndedDelay = 2 * time.Second

var (
	ErrNotIdle    = errors.New("call: not idle")
	ErrWrongState = errors.New("call: event does not apply in current state")
)

type InvitePayload struct {
	To      string          `json:"to"`
	Offer   json.RawMessage `json:"offer"`
	IsVideo bool            `json:"isVideo"`
}

type AnswerPayload struct {
	To     string          `json:"to"`
	Answer json.RawMessage `json:"answer"`
}

type CandidatePayload struct {
	To        string          `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

type RejectPayload struct {
	To   string `json:"to"`
	Busy bool   `json:"busy,omitempty"`
}

type EndPayload struct {
	To string `json:"to"`
}

// Machine drives one client's call state. Outgoing signaling goes through
// send (event name plus payload, matching the relay's directed events);
// remote ICE candidates ready for the peer connection come out through
// apply. Candidates arriving before the remote description is set are
// buffered and flushed in arrival order once MarkRemoteDescriptionSet is
// called.
type Machine struct {
	mu sync.Mutex

	state      State
	peerID     string
	video      bool
	remoteDesc bool
	pending    []json.RawMessage

	endedDelay time.Duration
	resetTimer *time.Timer

	send  func(event string, payload interface{})
	apply func(candidate json.RawMessage)
}

func NewMachine(send func(event string, payload interface{}), apply func(candidate json.RawMessage)) *Machine {
	return &Machine{
		state:      StateIdle,
		endedDelay: DefaultEndedDelay,
		send:       send,
		apply:      apply,
	}
}

// SetEndedDelay overrides the transient ended display window.
func (m *Machine) SetEndedDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.endedDelay = d
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) PeerID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peerID
}

// StartCall places an outgoing call. Only valid from idle.
func (m *Machine) StartCall(peerID string, offer json.RawMessage, isVideo bool) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrNotIdle
	}
	m.state = StateCalling
	m.peerID = peerID
	m.video = isVideo
	m.mu.Unlock()

	m.send("call:invite", InvitePayload{To: peerID, Offer: offer, IsVideo: isVideo})
	return nil
}

// HandleInvite processes an incoming invite. A machine that is not idle is
// busy: the invite is auto-rejected without ringing, the current call is
// untouched.
func (m *Machine) HandleInvite(from string, offer json.RawMessage, isVideo bool) {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		m.send("call:reject", RejectPayload{To: from, Busy: true})
		return
	}
	m.state = StateIncoming
	m.peerID = from
	m.video = isVideo
	m.mu.Unlock()
}

// Accept answers the ringing call. The caller must have set the offer as
// remote description before producing the answer, so acceptance also marks
// the remote description ready and flushes buffered candidates.
func (m *Machine) Accept(answer json.RawMessage) error {
	m.mu.Lock()
	if m.state != StateIncoming {
		m.mu.Unlock()
		return ErrWrongState
	}
	m.state = StateConnected
	peer := m.peerID
	flush := m.markRemoteDescLocked()
	m.mu.Unlock()

	m.send("call:answer", AnswerPayload{To: peer, Answer: answer})
	m.flush(flush)
	return nil
}

// Reject declines the ringing call.
func (m *Machine) Reject() error {
	m.mu.Lock()
	if m.state != StateIncoming {
		m.mu.Unlock()
		return ErrWrongState
	}
	peer := m.peerID
	m.resetLocked()
	m.mu.Unlock()

	m.send("call:reject", RejectPayload{To: peer})
	return nil
}

// HandleAnswer moves an outgoing call to connected.
func (m *Machine) HandleAnswer(from string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateCalling || from != m.peerID {
		return ErrWrongState
	}
	m.state = StateConnected
	return nil
}

// HandleReject ends an outgoing call that the callee declined.
func (m *Machine) HandleReject(from string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateCalling || from != m.peerID {
		return
	}
	m.enterEndedLocked()
}

// End hangs up the active call and tells the peer.
func (m *Machine) End() {
	m.mu.Lock()
	if m.state == StateIdle || m.state == StateEnded {
		m.mu.Unlock()
		return
	}
	peer := m.peerID
	m.enterEndedLocked()
	m.mu.Unlock()

	m.send("call:end", EndPayload{To: peer})
}

// HandleEnd processes the peer hanging up.
func (m *Machine) HandleEnd(from string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle || from != m.peerID {
		return
	}
	m.enterEndedLocked()
}

// AddLocalCandidate forwards a locally gathered ICE candidate to the peer.
func (m *Machine) AddLocalCandidate(candidate json.RawMessage) {
	m.mu.Lock()
	peer := m.peerID
	active := m.state == StateCalling || m.state == StateIncoming || m.state == StateConnected
	m.mu.Unlock()

	if active {
		m.send("call:ice-candidate", CandidatePayload{To: peer, Candidate: candidate})
	}
}

// HandleRemoteCandidate buffers or applies a candidate from the peer
// depending on whether the remote description is set yet.
func (m *Machine) HandleRemoteCandidate(candidate json.RawMessage) {
	m.mu.Lock()
	if !m.remoteDesc {
		m.pending = append(m.pending, candidate)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.apply(candidate)
}

// MarkRemoteDescriptionSet is called once the peer connection has its
// remote description; buffered candidates drain in arrival order.
func (m *Machine) MarkRemoteDescriptionSet() {
	m.mu.Lock()
	flush := m.markRemoteDescLocked()
	m.mu.Unlock()
	m.flush(flush)
}

func (m *Machine) markRemoteDescLocked() []json.RawMessage {
	m.remoteDesc = true
	flush := m.pending
	m.pending = nil
	return flush
}

func (m *Machine) flush(candidates []json.RawMessage) {
	for _, candidate := range candidates {
		m.apply(candidate)
	}
}

// enterEndedLocked shows the transient ended state, then falls back to
// idle after endedDelay.
func (m *Machine) enterEndedLocked() {
	m.state = StateEnded
	if m.resetTimer != nil {
		m.resetTimer.Stop()
	}
	m.resetTimer = time.AfterFunc(m.endedDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state == StateEnded {
			m.resetLocked()
		}
	})
}

func (m *Machine) resetLocked() {
	m.state = StateIdle
	m.peerID = ""
	m.video = false
	m.remoteDesc = false
	m.pending = nil
}
