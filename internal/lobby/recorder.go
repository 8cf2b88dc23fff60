package lobby

import (
	"context"
	"sync"
)

// Recorder keeps every published update in memory for tests to assert on.
type Recorder struct {
	mu      sync.Mutex
	updates []RoomStatusUpdate
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// UpdateRoomStatus appends a copy of the update.
func (r *Recorder) UpdateRoomStatus(_ context.Context, update *RoomStatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, *update)
	return nil
}

// Updates returns a copy of everything published so far.
func (r *Recorder) Updates() []RoomStatusUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RoomStatusUpdate, len(r.updates))
	copy(out, r.updates)
	return out
}

// Last returns the most recent update, if any.
func (r *Recorder) Last() (RoomStatusUpdate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return RoomStatusUpdate{}, false
	}
	return r.updates[len(r.updates)-1], true
}

// Len reports how many updates have been published.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}
