package strip

import (
	"sort"
	"testing"
)

func TestFrame(t *testing.T) {
	effective := map[uint8][]int{
		60: {10, 11},
		62: {12},
	}

	s := NewState()
	s.NoteOn(60, 100)
	s.NoteOn(62, 80)
	s.NoteOn(64, 90) // unmapped key lights nothing

	frame := s.Frame(effective)
	want := map[int]uint8{10: 100, 11: 100, 12: 80}
	if len(frame) != len(want) {
		t.Fatalf("frame = %v, want %v", frame, want)
	}
	for led, vel := range want {
		if frame[led] != vel {
			t.Errorf("LED %d = %d, want %d", led, frame[led], vel)
		}
	}

	s.NoteOff(60)
	frame = s.Frame(effective)
	if len(frame) != 1 || frame[12] != 80 {
		t.Errorf("after release: %v", frame)
	}

	s.ClearAll()
	if frame := s.Frame(effective); len(frame) != 0 {
		t.Errorf("after clear: %v", frame)
	}
}

func TestFrameSharedIndexHigherVelocityWins(t *testing.T) {
	effective := map[uint8][]int{
		60: {5},
		62: {5},
	}

	s := NewState()
	s.NoteOn(60, 40)
	s.NoteOn(62, 120)

	if frame := s.Frame(effective); frame[5] != 120 {
		t.Errorf("LED 5 = %d, want 120", frame[5])
	}
}

func TestDiffFrames(t *testing.T) {
	prev := map[int]uint8{1: 100, 2: 100, 3: 50}
	next := map[int]uint8{2: 100, 3: 80, 4: 90}

	on, off := DiffFrames(prev, next)

	sort.Slice(on, func(i, j int) bool { return on[i].Index < on[j].Index })
	if len(on) != 2 || on[0] != (LED{3, 80}) || on[1] != (LED{4, 90}) {
		t.Errorf("on = %v", on)
	}
	if len(off) != 1 || off[0] != 1 {
		t.Errorf("off = %v", off)
	}
}
