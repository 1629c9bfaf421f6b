package mapping

import (
	"fmt"
	"strconv"
	"strings"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// pianoSizes maps a piano size token to its (midiStart, midiEnd) bounds.
var pianoSizes = map[int][2]uint8{
	25: {48, 72},  // C3-C5
	37: {48, 84},  // C3-C6
	49: {36, 84},  // C2-C6
	61: {36, 96},  // C2-C7
	76: {28, 103}, // E1-G7
	88: {21, 108}, // A0-C8
}

// PianoSizes returns the supported size tokens in ascending order.
func PianoSizes() []int {
	return []int{25, 37, 49, 61, 76, 88}
}

// IsBlackKey reports whether a MIDI note is a black (accidental) key.
func IsBlackKey(note uint8) bool {
	switch note % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// NoteName returns the scientific pitch name of a MIDI note, e.g. "C4" for 60.
func NoteName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note)/12-1)
}

// ParseNote converts a pitch name like "C4" or "F#2" back to a MIDI note.
// Bare numbers ("60") are accepted too.
func ParseNote(s string) (uint8, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("MIDI note %d out of range 0-127", n)
		}
		return uint8(n), nil
	}

	upper := strings.ToUpper(s)
	for pc := 11; pc >= 0; pc-- {
		name := noteNames[pc]
		if !strings.HasPrefix(upper, name) {
			continue
		}
		oct, err := strconv.Atoi(upper[len(name):])
		if err != nil {
			continue
		}
		n := (oct+1)*12 + pc
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("note %q out of MIDI range", s)
		}
		return uint8(n), nil
	}
	return 0, fmt.Errorf("unparseable note %q", s)
}

// KeySpec describes a single piano key. Derived purely from the MIDI note;
// regenerated whenever the piano size changes, never mutated in place.
type KeySpec struct {
	MIDINote uint8  `json:"midiNote"`
	Name     string `json:"name"`
	IsBlack  bool   `json:"isBlack"`
}

// PianoLayout is an ordered run of keys with contiguous ascending MIDI notes.
type PianoLayout struct {
	Size      int
	MIDIStart uint8
	MIDIEnd   uint8
	Keys      []KeySpec
}

// NewLayout builds the layout for a standard piano size token.
func NewLayout(size int) (*PianoLayout, error) {
	bounds, ok := pianoSizes[size]
	if !ok {
		return nil, invalidConfig("unknown piano size %d (want one of %v)", size, PianoSizes())
	}
	l, err := NewLayoutRange(bounds[0], bounds[1])
	if err != nil {
		return nil, err
	}
	l.Size = size
	return l, nil
}

// NewLayoutRange builds a layout over an explicit MIDI note range.
func NewLayoutRange(start, end uint8) (*PianoLayout, error) {
	if end < start {
		return nil, invalidConfig("midiEnd %d before midiStart %d", end, start)
	}
	l := &PianoLayout{
		Size:      int(end) - int(start) + 1,
		MIDIStart: start,
		MIDIEnd:   end,
		Keys:      make([]KeySpec, 0, int(end)-int(start)+1),
	}
	for n := int(start); n <= int(end); n++ {
		note := uint8(n)
		l.Keys = append(l.Keys, KeySpec{
			MIDINote: note,
			Name:     NoteName(note),
			IsBlack:  IsBlackKey(note),
		})
	}
	return l, nil
}

// Contains reports whether a MIDI note is on this keyboard.
func (l *PianoLayout) Contains(note uint8) bool {
	return note >= l.MIDIStart && note <= l.MIDIEnd
}

// KeyAt returns the key spec for a note, or false if it is off the keyboard.
func (l *PianoLayout) KeyAt(note uint8) (KeySpec, bool) {
	if !l.Contains(note) {
		return KeySpec{}, false
	}
	return l.Keys[note-l.MIDIStart], true
}

// KeyCount returns the total number of keys.
func (l *PianoLayout) KeyCount() int {
	return len(l.Keys)
}

// WhiteKeys returns the white keys in keyboard order.
func (l *PianoLayout) WhiteKeys() []KeySpec {
	white := make([]KeySpec, 0, len(l.Keys))
	for _, k := range l.Keys {
		if !k.IsBlack {
			white = append(white, k)
		}
	}
	return white
}
