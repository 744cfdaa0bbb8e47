// Package roomtest provides an in-memory Broadcaster for module tests.
package roomtest

import (
	"sync"

	"party-games/internal/room"
)

type Message struct {
	To     string // "conn", "user", "group", "all"
	Target string
	Action string
	Data   any
}

// Recorder captures outbound traffic and group membership.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
	groups   map[string]map[string]bool // group -> conn ids
	conns    map[string]string          // conn id -> user id
}

var _ room.Broadcaster = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{groups: map[string]map[string]bool{}, conns: map[string]string{}}
}

// Connect tells the recorder which user owns connID, so Unsubscribe by user
// works.
func (r *Recorder) Connect(connID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = userID
}

func (r *Recorder) add(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, m)
}

func (r *Recorder) Reply(connID, action string, data any) {
	r.add(Message{To: "conn", Target: connID, Action: action, Data: data})
}

func (r *Recorder) SendUser(userID, action string, data any) {
	r.add(Message{To: "user", Target: userID, Action: action, Data: data})
}

func (r *Recorder) Broadcast(group, action string, data any) {
	r.add(Message{To: "group", Target: group, Action: action, Data: data})
}

func (r *Recorder) BroadcastExcept(group, exceptConnID, action string, data any) {
	r.add(Message{To: "group", Target: group, Action: action, Data: data})
}

func (r *Recorder) BroadcastAll(action string, data any) {
	r.add(Message{To: "all", Action: action, Data: data})
}

func (r *Recorder) Subscribe(connID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.groups[group] == nil {
		r.groups[group] = map[string]bool{}
	}
	r.groups[group][connID] = true
}

func (r *Recorder) Unsubscribe(userID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for conn := range r.groups[group] {
		if r.conns[conn] == userID || conn == userID {
			delete(r.groups[group], conn)
		}
	}
}

func (r *Recorder) CloseGroup(group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, group)
}

func (r *Recorder) Members(group string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups[group])
}

// Find returns messages with the given action, in send order.
func (r *Recorder) Find(action string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.Messages {
		if m.Action == action {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message with the given action.
func (r *Recorder) Last(action string) (Message, bool) {
	found := r.Find(action)
	if len(found) == 0 {
		return Message{}, false
	}
	return found[len(found)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = nil
}
