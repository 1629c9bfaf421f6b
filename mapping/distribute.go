package mapping

import (
	"math"
	"slices"
)

// Mode selects how LEDs are distributed over the keyboard.
type Mode string

const (
	ModeProportional Mode = "proportional"
	ModeFixed        Mode = "fixed"
	ModeCustom       Mode = "custom"
)

// ValidMode reports whether m is a known distribution mode.
func ValidMode(m Mode) bool {
	return m == ModeProportional || m == ModeFixed || m == ModeCustom
}

// LEDRange is the active window of the physical strip, inclusive on both ends.
type LEDRange struct {
	Start int `json:"startLed"`
	End   int `json:"endLed"`
}

// Validate checks the range against the strip's physical LED count.
func (r LEDRange) Validate(ledCount int) error {
	if ledCount < 1 {
		return invalidConfig("ledCount %d < 1", ledCount)
	}
	if r.Start < 0 || r.End < r.Start || r.End >= ledCount {
		return invalidConfig("LED range %d-%d outside strip of %d LEDs", r.Start, r.End, ledCount)
	}
	return nil
}

// Count returns the number of LEDs in the range.
func (r LEDRange) Count() int {
	return r.End - r.Start + 1
}

// Contains reports whether an index lies inside the range.
func (r LEDRange) Contains(i int) bool {
	return i >= r.Start && i <= r.End
}

// Clamp pins an index to the nearest range boundary.
func (r LEDRange) Clamp(i int) int {
	if i < r.Start {
		return r.Start
	}
	if i > r.End {
		return r.End
	}
	return i
}

// DistributionConfig holds the parameters of the automatic distribution.
// IncludeBlackKeys widens Proportional/Fixed from white keys (the default
// convention) to the full keyboard.
type DistributionConfig struct {
	Mode             Mode `json:"mode"`
	LEDsPerKey       int  `json:"ledsPerKey"`
	BaseOffset       int  `json:"baseOffset"`
	IncludeBlackKeys bool `json:"includeBlackKeys,omitempty"`
}

// Validate checks the distribution parameters.
func (c DistributionConfig) Validate() error {
	if !ValidMode(c.Mode) {
		return invalidConfig("unknown distribution mode %q", c.Mode)
	}
	if c.LEDsPerKey < 1 {
		return invalidConfig("ledsPerKey %d < 1", c.LEDsPerKey)
	}
	if c.BaseOffset < 0 {
		return invalidConfig("baseOffset %d < 0", c.BaseOffset)
	}
	return nil
}

// BaseMapping maps a MIDI note to its ordered LED indices, before offsets
// and overrides. Within one mapping no index appears under two notes.
type BaseMapping map[uint8][]int

// Clone deep-copies the mapping.
func (m BaseMapping) Clone() BaseMapping {
	out := make(BaseMapping, len(m))
	for n, leds := range m {
		out[n] = slices.Clone(leds)
	}
	return out
}

// consideredKeys returns the keys the automatic modes distribute over.
func consideredKeys(layout *PianoLayout, cfg DistributionConfig) []KeySpec {
	if cfg.IncludeBlackKeys {
		return layout.Keys
	}
	return layout.WhiteKeys()
}

// Distribute computes the base mapping for Proportional or Fixed mode.
// Running out of LEDs is not an error: trailing keys get short or empty
// allocations, which the validator reports as a capacity warning.
func Distribute(layout *PianoLayout, r LEDRange, cfg DistributionConfig) (BaseMapping, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == ModeCustom {
		return nil, invalidConfig("custom mode takes a caller-supplied mapping")
	}

	keys := consideredKeys(layout, cfg)
	out := make(BaseMapping, len(keys))
	switch cfg.Mode {
	case ModeProportional:
		available := r.Count() - cfg.BaseOffset
		if available < 1 || len(keys) == 0 {
			for _, k := range keys {
				out[k.MIDINote] = nil
			}
			return out, nil
		}
		step := float64(available) / float64(len(keys))
		next := r.Start + cfg.BaseOffset // first index not yet handed out
		for i, k := range keys {
			start := r.Start + cfg.BaseOffset + int(math.Floor(float64(i)*step))
			var leds []int
			for j := 0; j < cfg.LEDsPerKey; j++ {
				idx := start + j
				if idx > r.End {
					break
				}
				if idx < next {
					continue // already owned by the previous key
				}
				leds = append(leds, idx)
				next = idx + 1
			}
			out[k.MIDINote] = leds
		}
	case ModeFixed:
		for i, k := range keys {
			start := r.Start + cfg.BaseOffset + i*cfg.LEDsPerKey
			var leds []int
			for j := 0; j < cfg.LEDsPerKey; j++ {
				idx := start + j
				if idx > r.End {
					break
				}
				leds = append(leds, idx)
			}
			out[k.MIDINote] = leds
		}
	}
	return out, nil
}

// ValidateBaseMapping checks a caller-supplied mapping (Custom mode) for
// known notes, in-range indices, and the partition invariant.
func ValidateBaseMapping(m BaseMapping, layout *PianoLayout, r LEDRange) error {
	holder := make(map[int]uint8, len(m))
	for note, leds := range m {
		if !layout.Contains(note) {
			return invalidConfig("note %d not on a %d-key layout", note, layout.Size)
		}
		for _, led := range leds {
			if !r.Contains(led) {
				return invalidConfig("LED %d for %s outside range %d-%d", led, NoteName(note), r.Start, r.End)
			}
			if other, dup := holder[led]; dup {
				return invalidConfig("LED %d assigned to both %s and %s", led, NoteName(other), NoteName(note))
			}
			holder[led] = note
		}
	}
	return nil
}
