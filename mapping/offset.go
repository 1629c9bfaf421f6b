package mapping

// OffsetState shifts allocations along the strip. PerKey is sparse: an
// entry exists only for notes with a non-default offset, absence means 0.
type OffsetState struct {
	Global int           `json:"global"`
	PerKey map[uint8]int `json:"perKey,omitempty"`
}

// NewOffsetState returns an empty offset state.
func NewOffsetState() OffsetState {
	return OffsetState{PerKey: make(map[uint8]int)}
}

// For returns the total offset for a note.
func (o OffsetState) For(note uint8) int {
	return o.Global + o.PerKey[note]
}

// Clone deep-copies the state.
func (o OffsetState) Clone() OffsetState {
	out := OffsetState{Global: o.Global, PerKey: make(map[uint8]int, len(o.PerKey))}
	for n, v := range o.PerKey {
		out.PerKey[n] = v
	}
	return out
}

// ApplyOffsets shifts every allocation by global + per-key offset, clamping
// to the range boundaries (never wrapping). Clamping can collapse several
// base indices of one key onto a boundary; those are deduplicated here.
// Cross-key collisions introduced by clamping are deliberately left in
// place for the validator to report.
func ApplyOffsets(base BaseMapping, off OffsetState, r LEDRange) BaseMapping {
	out := make(BaseMapping, len(base))
	for note, leds := range base {
		delta := off.For(note)
		var adjusted []int
		for _, led := range leds {
			idx := r.Clamp(led + delta)
			if n := len(adjusted); n > 0 && adjusted[n-1] == idx {
				continue
			}
			adjusted = append(adjusted, idx)
		}
		out[note] = adjusted
	}
	return out
}
