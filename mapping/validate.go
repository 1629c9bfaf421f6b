package mapping

import (
	"fmt"
	"sort"
)

// Statistics summarizes the committed mapping for the dashboard.
type Statistics struct {
	TotalKeysMapped  int         `json:"total_keys_mapped"`
	PianoSize        int         `json:"piano_size"`
	LEDCount         int         `json:"led_count"`
	DistributionMode Mode        `json:"distribution_mode"`
	BaseOffset       int         `json:"base_offset"`
	Coverage         float64     `json:"coverage"`
	Histogram        map[int]int `json:"leds_per_key_histogram"` // LEDs-per-key -> key count
}

// Report carries the validator output. Warnings are non-blocking
// diagnostics: a key with no light is a valid, user-correctable state, not
// a failure.
type Report struct {
	Warnings        []string   `json:"warnings"`
	Recommendations []string   `json:"recommendations"`
	Statistics      Statistics `json:"statistics"`
}

// Validate builds the report for the committed state, folding in the
// reallocation warnings from the last recompute.
func (e *Engine) Validate() Report {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rep := Report{
		Warnings:        append([]string{}, e.realloc...),
		Recommendations: []string{},
		Statistics: Statistics{
			PianoSize:        e.layout.Size,
			LEDCount:         e.ledCount,
			DistributionMode: e.dist.Mode,
			BaseOffset:       e.dist.BaseOffset,
			Histogram:        make(map[int]int),
		},
	}

	// Keys the current config is expected to light: the distribution's key
	// set plus anything explicitly overridden.
	expected := make(map[uint8]bool)
	for _, k := range consideredKeys(e.layout, e.dist) {
		expected[k.MIDINote] = true
	}
	for n := range e.overrides {
		expected[n] = true
	}

	used := make(map[int][]uint8)
	mapped := 0
	var unlit []uint8
	for note := range expected {
		leds := e.effective[note]
		rep.Statistics.Histogram[len(leds)]++
		if len(leds) == 0 {
			unlit = append(unlit, note)
		} else {
			mapped++
		}
	}
	for note, leds := range e.effective {
		for _, led := range leds {
			used[led] = append(used[led], note)
		}
	}

	rep.Statistics.TotalKeysMapped = mapped
	if len(expected) > 0 {
		rep.Statistics.Coverage = float64(mapped) / float64(len(expected))
	}

	// Duplicate indices are structurally impossible after override
	// reallocation, but offset clamping can still collide two keys on a
	// boundary. Checked here instead of silently resolved.
	dupLEDs := make([]int, 0)
	for led, notes := range used {
		if len(notes) > 1 {
			dupLEDs = append(dupLEDs, led)
		}
	}
	sort.Ints(dupLEDs)
	for _, led := range dupLEDs {
		notes := used[led]
		sort.Slice(notes, func(i, j int) bool { return notes[i] < notes[j] })
		rep.Warnings = append(rep.Warnings, fmt.Sprintf(
			"LED %d is assigned to %d keys (%s and %s); adjust the colliding offsets",
			led, len(notes), NoteName(notes[0]), NoteName(notes[1])))
	}

	if e.ledRange.Count() < len(expected) {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf(
			"not enough LEDs for one per key: %d LEDs in range for %d keys",
			e.ledRange.Count(), len(expected)))
		rep.Recommendations = append(rep.Recommendations,
			"use a longer strip or widen the LED range")
	}

	if len(unlit) > 0 {
		spare := e.ledRange.Count() - len(used)
		sort.Slice(unlit, func(i, j int) bool { return unlit[i] < unlit[j] })
		rep.Warnings = append(rep.Warnings, fmt.Sprintf(
			"%d keys have no LEDs (first: %s)", len(unlit), NoteName(unlit[0])))
		if spare > 0 {
			rep.Recommendations = append(rep.Recommendations, fmt.Sprintf(
				"%d LEDs in range are unused; lower baseOffset or ledsPerKey, or switch to %s mode",
				spare, ModeProportional))
		}
	}

	return rep
}
