package mapping

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Engine is the single owner of the mapping state for one device: layout,
// distribution config, offsets, and the override table. Mutations are
// serialized behind the mutex; reads return copies of the last committed
// effective mapping. The effective mapping is always recomputed from the
// four authoritative inputs, never patched incrementally.
type Engine struct {
	mu sync.RWMutex

	layout   *PianoLayout
	ledCount int
	ledRange LEDRange
	dist     DistributionConfig
	custom   BaseMapping // caller-supplied mapping for ModeCustom

	offsets   OffsetState
	overrides map[uint8]*overrideEntry
	nextSeq   uint64

	// committed state
	effective map[uint8][]int
	realloc   []string // reallocation warnings from the last recompute
	version   uint64
}

// overrideEntry pins a key to an exact LED set. seq preserves commit order
// so recomputes resolve conflicts the same way every time.
type overrideEntry struct {
	leds []int
	seq  uint64
}

// ReallocationRecord describes what one SetOverride call moved around.
// Derived from the before/after mappings for reporting only; never a second
// source of truth.
type ReallocationRecord struct {
	Note            uint8           `json:"note"`
	Removed         []int           `json:"removed"`
	Added           []int           `json:"added"`
	ReallocatedFrom map[uint8][]int `json:"reallocatedFrom"` // donor key -> LEDs taken from it
	ReallocatedTo   map[uint8][]int `json:"reallocatedTo"`   // receiving key -> LEDs handed to it
}

// NewEngine builds an engine for a piano size and strip configuration and
// computes the initial mapping.
func NewEngine(pianoSize, ledCount int, r LEDRange, cfg DistributionConfig) (*Engine, error) {
	layout, err := NewLayout(pianoSize)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(ledCount); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		layout:    layout,
		ledCount:  ledCount,
		ledRange:  r,
		dist:      cfg,
		offsets:   NewOffsetState(),
		overrides: make(map[uint8]*overrideEntry),
	}
	if err := e.recomputeLocked(); err != nil {
		return nil, err
	}
	return e, nil
}

// ---- read side ----

// Layout returns the current piano layout.
func (e *Engine) Layout() *PianoLayout {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.layout
}

// Range returns the active LED range.
func (e *Engine) Range() LEDRange {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledRange
}

// LEDCount returns the physical strip length.
func (e *Engine) LEDCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledCount
}

// Distribution returns the current distribution config.
func (e *Engine) Distribution() DistributionConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dist
}

// Offsets returns a copy of the offset state.
func (e *Engine) Offsets() OffsetState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.offsets.Clone()
}

// Overrides returns a copy of the override table.
func (e *Engine) Overrides() map[uint8][]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[uint8][]int, len(e.overrides))
	for n, ov := range e.overrides {
		out[n] = slices.Clone(ov.leds)
	}
	return out
}

// Version increments on every committed mutation.
func (e *Engine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// EffectiveMapping returns a copy of the committed note -> LED mapping.
// Keys with empty allocations are included so callers can tell "mapped to
// nothing" from "not a key".
func (e *Engine) EffectiveMapping() map[uint8][]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneMapping(e.effective)
}

// LEDsFor returns the committed allocation of a single note.
func (e *Engine) LEDsFor(note uint8) []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.effective[note])
}

// ---- configuration mutations ----

// SetPianoSize regenerates the layout. Overrides and per-key offsets for
// notes that fall off the new keyboard are pruned.
func (e *Engine) SetPianoSize(size int) error {
	layout, err := NewLayout(size)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.layout = layout
	for n := range e.overrides {
		if !layout.Contains(n) {
			delete(e.overrides, n)
		}
	}
	for n := range e.offsets.PerKey {
		if !layout.Contains(n) {
			delete(e.offsets.PerKey, n)
		}
	}
	e.custom = pruneMapping(e.custom, layout, e.ledRange)
	return e.recomputeLocked()
}

// SetLEDCount resizes the strip, clamping the active range to fit.
func (e *Engine) SetLEDCount(n int) error {
	if n < 1 {
		return invalidConfig("ledCount %d < 1", n)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledCount = n
	if e.ledRange.End >= n {
		e.ledRange.End = n - 1
	}
	if e.ledRange.Start > e.ledRange.End {
		e.ledRange.Start = e.ledRange.End
	}
	e.pruneToRangeLocked()
	return e.recomputeLocked()
}

// SetLEDRange moves the active strip window. Override and custom-mapping
// indices that fall outside the new window are pruned.
func (e *Engine) SetLEDRange(r LEDRange) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := r.Validate(e.ledCount); err != nil {
		return err
	}
	e.ledRange = r
	e.pruneToRangeLocked()
	return e.recomputeLocked()
}

// SetDistribution replaces the whole distribution config. With
// applyMapping false the new config is stored but the committed mapping
// stays as-is until the next Recompute or mutation.
func (e *Engine) SetDistribution(cfg DistributionConfig, applyMapping bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if cfg.Mode == ModeCustom && e.custom == nil {
		return invalidConfig("custom mode selected but no custom mapping loaded")
	}
	e.dist = cfg
	if !applyMapping {
		return nil
	}
	return e.recomputeLocked()
}

// SetDistributionMode switches only the mode, keeping the other parameters.
// Overrides survive mode switches: the recompute re-pins them on top of the
// new base mapping.
func (e *Engine) SetDistributionMode(mode Mode, applyMapping bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.dist
	cfg.Mode = mode
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Mode == ModeCustom && e.custom == nil {
		return invalidConfig("custom mode selected but no custom mapping loaded")
	}
	e.dist = cfg
	if !applyMapping {
		return nil
	}
	return e.recomputeLocked()
}

// SetCustomMapping installs a caller-supplied base mapping for ModeCustom.
func (e *Engine) SetCustomMapping(m BaseMapping) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ValidateBaseMapping(m, e.layout, e.ledRange); err != nil {
		return err
	}
	e.custom = m.Clone()
	if e.dist.Mode != ModeCustom {
		return nil
	}
	return e.recomputeLocked()
}

// SetGlobalOffset shifts every key's allocation along the strip.
func (e *Engine) SetGlobalOffset(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offsets.Global = n
	return e.recomputeLocked()
}

// SetKeyOffset shifts one key. An offset of 0 clears the sparse entry.
func (e *Engine) SetKeyOffset(note uint8, off int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.layout.Contains(note) {
		return invalidRequest("unknown MIDI note %d", note)
	}
	if off == 0 {
		delete(e.offsets.PerKey, note)
	} else {
		e.offsets.PerKey[note] = off
	}
	return e.recomputeLocked()
}

// DeleteKeyOffset removes a per-key offset.
func (e *Engine) DeleteKeyOffset(note uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.layout.Contains(note) {
		return invalidRequest("unknown MIDI note %d", note)
	}
	delete(e.offsets.PerKey, note)
	return e.recomputeLocked()
}

// Recompute rebuilds the committed mapping from the authoritative inputs.
// All mutating calls do this themselves; this entry point exists for
// callers that changed config with applyMapping=false.
func (e *Engine) Recompute() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recomputeLocked()
}

// ---- overrides ----

// SetOverride pins a key to exactly the given LED set. Added indices are
// stripped from whichever keys currently hold them; removed indices are
// handed to the nearest eligible neighbor (left first, then right), or left
// unassigned with a warning. The whole request is validated up front and
// rejected atomically on failure.
func (e *Engine) SetOverride(note uint8, leds []int) (map[uint8][]int, *ReallocationRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.layout.Contains(note) {
		return nil, nil, invalidRequest("unknown MIDI note %d", note)
	}
	pinned := normalizeLEDSet(leds)
	for _, led := range pinned {
		if !e.ledRange.Contains(led) {
			return nil, nil, invalidRequest("LED %d outside range %d-%d", led, e.ledRange.Start, e.ledRange.End)
		}
	}

	before := cloneMapping(e.effective)
	if prev, ok := e.overrides[note]; ok && slices.Equal(prev.leds, pinned) {
		// Identical resubmission: keep the original commit order so the
		// result is byte-for-byte the same.
		rec := buildReallocationRecord(note, before, before, pinned)
		return cloneMapping(e.effective), rec, nil
	}

	prev, hadPrev := e.overrides[note]
	e.overrides[note] = &overrideEntry{leds: pinned, seq: e.nextSeq}
	e.nextSeq++
	if err := e.recomputeLocked(); err != nil {
		if hadPrev {
			e.overrides[note] = prev
		} else {
			delete(e.overrides, note)
		}
		return nil, nil, err
	}
	rec := buildReallocationRecord(note, before, e.effective, pinned)
	return cloneMapping(e.effective), rec, nil
}

// ClearOverride unpins a key and recomputes from scratch. That full
// recompute is what keeps clearing well-defined after overlapping
// overrides - there is no undo log to replay.
func (e *Engine) ClearOverride(note uint8) (map[uint8][]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.layout.Contains(note) {
		return nil, invalidRequest("unknown MIDI note %d", note)
	}
	if _, ok := e.overrides[note]; !ok {
		return cloneMapping(e.effective), nil
	}
	delete(e.overrides, note)
	if err := e.recomputeLocked(); err != nil {
		return nil, err
	}
	return cloneMapping(e.effective), nil
}

// ClearAllOverrides empties the override table and recomputes.
func (e *Engine) ClearAllOverrides() (map[uint8][]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overrides = make(map[uint8]*overrideEntry)
	if err := e.recomputeLocked(); err != nil {
		return nil, err
	}
	return cloneMapping(e.effective), nil
}

// ---- recompute ----

func (e *Engine) baseMappingLocked() (BaseMapping, error) {
	if e.dist.Mode == ModeCustom {
		if e.custom == nil {
			return nil, invalidConfig("custom mode selected but no custom mapping loaded")
		}
		return e.custom.Clone(), nil
	}
	return Distribute(e.layout, e.ledRange, e.dist)
}

// recomputeLocked rebuilds the effective mapping: base distribution,
// offsets, then overrides in commit order with neighbor reallocation.
func (e *Engine) recomputeLocked() error {
	base, err := e.baseMappingLocked()
	if err != nil {
		return err
	}
	adjusted := ApplyOffsets(base, e.offsets, e.ledRange)

	eff := cloneMapping(map[uint8][]int(adjusted))
	var warnings []string

	order := e.orderedOverridesLocked()

	// Pin overridden keys. An LED pinned by two overrides goes to the one
	// committed later; the earlier override loses it and a warning says so.
	winner := make(map[int]uint8)
	for _, note := range order {
		for _, led := range e.overrides[note].leds {
			winner[led] = note
		}
	}
	for _, note := range order {
		pinned := e.overrides[note].leds
		kept := make([]int, 0, len(pinned))
		for _, led := range pinned {
			if winner[led] == note {
				kept = append(kept, led)
				continue
			}
			warnings = append(warnings, fmt.Sprintf(
				"override on %s lost LED %d to the later override on %s",
				NoteName(note), led, NoteName(winner[led])))
		}
		eff[note] = kept
	}

	// Steal the winning indices from non-overridden holders. Overridden
	// keys already carry exactly their winning sets and are never donors.
	for _, note := range order {
		for _, led := range eff[note] {
			for other, held := range eff {
				if other == note {
					continue
				}
				if _, isPinned := e.overrides[other]; isPinned {
					continue
				}
				if i := slices.Index(held, led); i >= 0 {
					eff[other] = slices.Delete(held, i, i+1)
					if len(eff[other]) == 0 {
						warnings = append(warnings, fmt.Sprintf(
							"key %s lost its last LED %d to the override on %s",
							NoteName(other), led, NoteName(note)))
					}
				}
			}
		}
	}

	// Hand indices the overrides released to a neighbor: left first, then
	// right, else leave them unassigned and say so.
	for _, note := range order {
		pinned := e.overrides[note].leds
		for _, led := range adjusted[note] {
			if slices.Contains(pinned, led) {
				continue
			}
			if _, held := findHolder(eff, led, note); held {
				continue
			}
			recv, ok := e.receiverLocked(note)
			if !ok {
				warnings = append(warnings, fmt.Sprintf(
					"LED %d released by the override on %s has no eligible neighbor and is unlit",
					led, NoteName(note)))
				continue
			}
			eff[recv] = insertSorted(eff[recv], led)
		}
	}

	e.effective = eff
	e.realloc = warnings
	e.version++
	return nil
}

// receiverLocked picks the neighbor that absorbs a released LED: the key
// immediately left on the keyboard, unless that key is itself pinned by an
// override, then the key to the right under the same rule.
func (e *Engine) receiverLocked(note uint8) (uint8, bool) {
	if note > e.layout.MIDIStart {
		left := note - 1
		if _, pinned := e.overrides[left]; !pinned {
			return left, true
		}
	}
	if note < e.layout.MIDIEnd {
		right := note + 1
		if _, pinned := e.overrides[right]; !pinned {
			return right, true
		}
	}
	return 0, false
}

func (e *Engine) orderedOverridesLocked() []uint8 {
	notes := make([]uint8, 0, len(e.overrides))
	for n := range e.overrides {
		notes = append(notes, n)
	}
	sort.Slice(notes, func(i, j int) bool {
		return e.overrides[notes[i]].seq < e.overrides[notes[j]].seq
	})
	return notes
}

// pruneToRangeLocked drops override and custom-mapping indices that fell
// outside the active range after a range or strip-length change.
func (e *Engine) pruneToRangeLocked() {
	for note, ov := range e.overrides {
		kept := ov.leds[:0:0]
		for _, led := range ov.leds {
			if e.ledRange.Contains(led) {
				kept = append(kept, led)
			}
		}
		e.overrides[note].leds = kept
	}
	e.custom = pruneMapping(e.custom, e.layout, e.ledRange)
}

// ---- helpers ----

func pruneMapping(m BaseMapping, layout *PianoLayout, r LEDRange) BaseMapping {
	if m == nil {
		return nil
	}
	out := make(BaseMapping, len(m))
	for note, leds := range m {
		if !layout.Contains(note) {
			continue
		}
		var kept []int
		for _, led := range leds {
			if r.Contains(led) {
				kept = append(kept, led)
			}
		}
		out[note] = kept
	}
	return out
}

func cloneMapping(m map[uint8][]int) map[uint8][]int {
	out := make(map[uint8][]int, len(m))
	for n, leds := range m {
		out[n] = slices.Clone(leds)
	}
	return out
}

// normalizeLEDSet sorts and deduplicates an override set.
func normalizeLEDSet(leds []int) []int {
	out := slices.Clone(leds)
	slices.Sort(out)
	return slices.Compact(out)
}

// insertSorted adds led to a sorted allocation, ignoring duplicates.
func insertSorted(leds []int, led int) []int {
	i, found := slices.BinarySearch(leds, led)
	if found {
		return leds
	}
	return slices.Insert(leds, i, led)
}

// findHolder returns the key (other than except) currently holding an LED.
func findHolder(m map[uint8][]int, led int, except uint8) (uint8, bool) {
	for note, leds := range m {
		if note == except {
			continue
		}
		if slices.Contains(leds, led) {
			return note, true
		}
	}
	return 0, false
}

// buildReallocationRecord diffs the committed mappings around one override.
func buildReallocationRecord(note uint8, before, after map[uint8][]int, pinned []int) *ReallocationRecord {
	old := before[note]
	rec := &ReallocationRecord{
		Note:            note,
		Removed:         setDiff(old, pinned),
		Added:           setDiff(pinned, old),
		ReallocatedFrom: make(map[uint8][]int),
		ReallocatedTo:   make(map[uint8][]int),
	}
	for _, led := range rec.Added {
		if donor, ok := findHolder(before, led, note); ok {
			rec.ReallocatedFrom[donor] = append(rec.ReallocatedFrom[donor], led)
		}
	}
	for _, led := range rec.Removed {
		if recv, ok := findHolder(after, led, note); ok {
			rec.ReallocatedTo[recv] = append(rec.ReallocatedTo[recv], led)
		}
	}
	return rec
}

// setDiff returns the elements of a not present in b, in a's order.
func setDiff(a, b []int) []int {
	out := []int{}
	for _, v := range a {
		if !slices.Contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}
