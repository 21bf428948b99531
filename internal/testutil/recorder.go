package testutil

import (
	"sync"

	"ngabarin/realtime/internal/websocket"
)

// Emission is one captured call on the emitter
type Emission struct {
	Room    websocket.Room
	Event   websocket.EventType
	Payload interface{}
	Exclude string
	Global  bool
}

// Recorder is a websocket.Emitter that captures emissions in order
type Recorder struct {
	mu        sync.Mutex
	emissions []Emission
}

var _ websocket.Emitter = (*Recorder)(nil)

func (r *Recorder) EmitToRoom(room websocket.Room, event websocket.EventType, payload interface{}, excludeConnID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emissions = append(r.emissions, Emission{Room: room, Event: event, Payload: payload, Exclude: excludeConnID})
}

func (r *Recorder) EmitAll(event websocket.EventType, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emissions = append(r.emissions, Emission{Event: event, Payload: payload, Global: true})
}

// All returns every captured emission
func (r *Recorder) All() []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Emission(nil), r.emissions...)
}

// ByEvent returns the captured emissions of one event type
func (r *Recorder) ByEvent(event websocket.EventType) []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Emission
	for _, e := range r.emissions {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops everything captured so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emissions = nil
}
