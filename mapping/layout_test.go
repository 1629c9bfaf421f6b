package mapping

import (
	"errors"
	"testing"
)

func TestNewLayoutSizes(t *testing.T) {
	tests := []struct {
		size       int
		start, end uint8
		whiteCount int
	}{
		{25, 48, 72, 15},
		{37, 48, 84, 22},
		{49, 36, 84, 29},
		{61, 36, 96, 36},
		{76, 28, 103, 45},
		{88, 21, 108, 52},
	}

	for _, tt := range tests {
		l, err := NewLayout(tt.size)
		if err != nil {
			t.Fatalf("NewLayout(%d): %v", tt.size, err)
		}
		if l.MIDIStart != tt.start || l.MIDIEnd != tt.end {
			t.Errorf("size %d: bounds %d-%d, want %d-%d", tt.size, l.MIDIStart, l.MIDIEnd, tt.start, tt.end)
		}
		if l.KeyCount() != tt.size {
			t.Errorf("size %d: %d keys", tt.size, l.KeyCount())
		}
		if got := len(l.WhiteKeys()); got != tt.whiteCount {
			t.Errorf("size %d: %d white keys, want %d", tt.size, got, tt.whiteCount)
		}
		// contiguous ascending notes, no gaps
		for i, k := range l.Keys {
			if int(k.MIDINote) != int(tt.start)+i {
				t.Fatalf("size %d: key %d has note %d", tt.size, i, k.MIDINote)
			}
		}
	}
}

func TestNewLayoutErrors(t *testing.T) {
	if _, err := NewLayout(42); err == nil {
		t.Fatal("unknown size accepted")
	} else {
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Fatalf("want ConfigError, got %T", err)
		}
	}
	if _, err := NewLayoutRange(60, 50); err == nil {
		t.Fatal("inverted range accepted")
	}
}

func TestBlackKeys(t *testing.T) {
	black := map[uint8]bool{
		21: false, // A0
		22: true,  // A#0
		60: false, // C4
		61: true,  // C#4
		64: false, // E4
		66: true,  // F#4
	}
	for note, want := range black {
		if got := IsBlackKey(note); got != want {
			t.Errorf("IsBlackKey(%d) = %v, want %v", note, got, want)
		}
	}
}

func TestNoteNames(t *testing.T) {
	tests := []struct {
		note uint8
		name string
	}{
		{21, "A0"},
		{60, "C4"},
		{61, "C#4"},
		{69, "A4"},
		{108, "C8"},
	}
	for _, tt := range tests {
		if got := NoteName(tt.note); got != tt.name {
			t.Errorf("NoteName(%d) = %q, want %q", tt.note, got, tt.name)
		}
		back, err := ParseNote(tt.name)
		if err != nil || back != tt.note {
			t.Errorf("ParseNote(%q) = %d, %v; want %d", tt.name, back, err, tt.note)
		}
	}
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		in      string
		want    uint8
		wantErr bool
	}{
		{"60", 60, false},
		{" C4 ", 60, false},
		{"c#4", 61, false},
		{"Bb3", 0, true}, // only sharp spellings in the name table
		{"200", 0, true},
		{"xyz", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseNote(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseNote(%q) accepted, got %d", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseNote(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestKeyAt(t *testing.T) {
	l, err := NewLayout(88)
	if err != nil {
		t.Fatal(err)
	}
	k, ok := l.KeyAt(60)
	if !ok || k.Name != "C4" || k.IsBlack {
		t.Errorf("KeyAt(60) = %+v, %v", k, ok)
	}
	if _, ok := l.KeyAt(10); ok {
		t.Error("KeyAt(10) on an 88-key layout should miss")
	}
}
