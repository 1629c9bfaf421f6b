// Package strip turns the set of currently held piano keys into lit LED
// frames using the engine's effective mapping. It only computes which
// indices are lit; driving the physical strip is the caller's job.
package strip

import (
	"sync"
)

// LED is a single lit index with the velocity that lit it.
type LED struct {
	Index    int
	Velocity uint8
}

// State tracks which MIDI notes are currently held.
type State struct {
	mu     sync.Mutex
	active map[uint8]uint8 // note -> velocity
}

// NewState returns an empty note state.
func NewState() *State {
	return &State{active: make(map[uint8]uint8)}
}

// NoteOn marks a note as held.
func (s *State) NoteOn(note, velocity uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[note] = velocity
}

// NoteOff releases a note.
func (s *State) NoteOff(note uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, note)
}

// ClearAll releases every note (used on device disconnect).
func (s *State) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = make(map[uint8]uint8)
}

// ActiveNotes returns a snapshot of the held notes.
func (s *State) ActiveNotes() map[uint8]uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint8]uint8, len(s.active))
	for n, v := range s.active {
		out[n] = v
	}
	return out
}

// Frame computes the lit indices for the held notes under the given
// effective mapping. When two held keys share an index (offset-clamp
// collisions), the higher velocity wins.
func (s *State) Frame(effective map[uint8][]int) map[int]uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := make(map[int]uint8)
	for note, vel := range s.active {
		for _, led := range effective[note] {
			if prev, ok := frame[led]; !ok || vel > prev {
				frame[led] = vel
			}
		}
	}
	return frame
}

// DiffFrames computes the updates needed to move the strip from prev to
// next: indices to (re)light and indices to switch off.
func DiffFrames(prev, next map[int]uint8) (on []LED, off []int) {
	for led, vel := range next {
		if pv, ok := prev[led]; !ok || pv != vel {
			on = append(on, LED{Index: led, Velocity: vel})
		}
	}
	for led := range prev {
		if _, ok := next[led]; !ok {
			off = append(off, led)
		}
	}
	return on, off
}
