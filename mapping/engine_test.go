package mapping

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(88, 246, LEDRange{0, 245}, DistributionConfig{
		Mode:       ModeProportional,
		LEDsPerKey: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOverrideRoundTrip(t *testing.T) {
	e := newTestEngine(t)

	want := []int{100, 101}
	eff, rec, err := e.SetOverride(60, []int{101, 100, 100})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(eff[60], want) {
		t.Errorf("returned mapping: got %v, want %v", eff[60], want)
	}
	if got := e.EffectiveMapping()[60]; !slices.Equal(got, want) {
		t.Errorf("queried mapping: got %v, want %v", got, want)
	}
	if rec.Note != 60 {
		t.Errorf("record note %d", rec.Note)
	}
}

func TestOverrideIdempotence(t *testing.T) {
	e := newTestEngine(t)

	first, _, err := e.SetOverride(60, []int{100})
	if err != nil {
		t.Fatal(err)
	}
	second, rec, err := e.SetOverride(60, []int{100})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical resubmission changed the mapping")
	}
	if len(rec.Removed) != 0 || len(rec.Added) != 0 {
		t.Errorf("second call: removed %v added %v, want empty", rec.Removed, rec.Added)
	}
}

func TestOverrideRecomputeConsistency(t *testing.T) {
	e := newTestEngine(t)
	pristine := e.EffectiveMapping()

	if _, _, err := e.SetOverride(60, []int{5, 6}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ClearOverride(60); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.SetOverride(60, []int{5, 6}); err != nil {
		t.Fatal(err)
	}
	after, err := e.ClearOverride(60)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(pristine, after) {
		t.Error("clear did not restore the pre-override state")
	}
}

func TestOverrideReallocatesToLeftNeighbor(t *testing.T) {
	e := newTestEngine(t)

	base := e.LEDsFor(60) // Middle C, a white key, has a base allocation
	if len(base) == 0 {
		t.Fatal("expected a base allocation for C4")
	}
	leftBefore := e.LEDsFor(59)

	eff, rec, err := e.SetOverride(60, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(eff[60]) != 0 {
		t.Errorf("C4 still has %v", eff[60])
	}
	// The released LEDs land on the key immediately to the left (C#4's
	// lower neighbor B3 is note 59).
	for _, led := range base {
		if !slices.Contains(eff[59], led) {
			t.Errorf("LED %d not handed to note 59: %v", led, eff[59])
		}
	}
	if !slices.Equal(rec.ReallocatedTo[59], base) {
		t.Errorf("reallocatedTo[59] = %v, want %v", rec.ReallocatedTo[59], base)
	}

	// Clearing restores both keys.
	after, err := e.ClearOverride(60)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(after[60], base) {
		t.Errorf("C4 after clear: %v, want %v", after[60], base)
	}
	if !slices.Equal(after[59], leftBefore) {
		t.Errorf("59 after clear: %v, want %v", after[59], leftBefore)
	}
}

func TestOverrideFallsBackToRightNeighbor(t *testing.T) {
	e := newTestEngine(t)
	base := e.LEDsFor(60)

	// Pin the left neighbor so it is ineligible.
	if _, _, err := e.SetOverride(59, []int{0}); err != nil {
		t.Fatal(err)
	}
	eff, rec, err := e.SetOverride(60, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, led := range base {
		if !slices.Contains(eff[61], led) {
			t.Errorf("LED %d not handed to the right neighbor: %v", led, eff[61])
		}
	}
	if !slices.Equal(rec.ReallocatedTo[61], base) {
		t.Errorf("reallocatedTo[61] = %v, want %v", rec.ReallocatedTo[61], base)
	}
}

func TestOverrideOrphansWhenBothNeighborsPinned(t *testing.T) {
	e := newTestEngine(t)
	base := e.LEDsFor(60)

	if _, _, err := e.SetOverride(59, []int{0}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.SetOverride(61, []int{1}); err != nil {
		t.Fatal(err)
	}
	eff, rec, err := e.SetOverride(60, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, led := range base {
		if note, held := findHolder(eff, led, 60); held {
			t.Errorf("LED %d should be orphaned, held by %s", led, NoteName(note))
		}
	}
	if len(rec.ReallocatedTo) != 0 {
		t.Errorf("reallocatedTo = %v, want empty", rec.ReallocatedTo)
	}

	rep := e.Validate()
	found := false
	for _, w := range rep.Warnings {
		if strings.Contains(w, "no eligible neighbor") {
			found = true
		}
	}
	if !found {
		t.Errorf("orphan warning missing from %v", rep.Warnings)
	}
}

func TestOverrideStealsFromHolder(t *testing.T) {
	e := newTestEngine(t)

	// Find an LED owned by some other key and claim it for C4.
	donor := uint8(62) // D4, white
	donorLEDs := e.LEDsFor(donor)
	if len(donorLEDs) == 0 {
		t.Fatal("expected a base allocation for D4")
	}
	stolen := donorLEDs[0]

	eff, rec, err := e.SetOverride(60, []int{stolen})
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(eff[donor], stolen) {
		t.Errorf("donor %s still holds LED %d", NoteName(donor), stolen)
	}
	if !slices.Equal(rec.ReallocatedFrom[donor], []int{stolen}) {
		t.Errorf("reallocatedFrom[%d] = %v, want [%d]", donor, rec.ReallocatedFrom[donor], stolen)
	}
	assertPartition(t, eff)
}

func TestOverrideContestedLEDLaterWins(t *testing.T) {
	e := newTestEngine(t)

	if _, _, err := e.SetOverride(60, []int{100}); err != nil {
		t.Fatal(err)
	}
	eff, _, err := e.SetOverride(62, []int{100})
	if err != nil {
		t.Fatal(err)
	}

	// The later commit keeps the contested LED, round-tripping exactly.
	if !slices.Equal(eff[62], []int{100}) {
		t.Errorf("later override: got %v, want [100]", eff[62])
	}
	if got := e.LEDsFor(62); !slices.Equal(got, []int{100}) {
		t.Errorf("queried later override: got %v, want [100]", got)
	}
	if slices.Contains(eff[60], 100) {
		t.Errorf("earlier override still holds the contested LED: %v", eff[60])
	}
	assertPartition(t, eff)

	rep := e.Validate()
	found := false
	for _, w := range rep.Warnings {
		if strings.Contains(w, "lost LED 100") {
			found = true
		}
	}
	if !found {
		t.Errorf("contested-pin warning missing from %v", rep.Warnings)
	}

	// Clearing the later override hands the LED back to the earlier pin.
	after, err := e.ClearOverride(62)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(after[60], []int{100}) {
		t.Errorf("after clearing the winner: got %v, want [100]", after[60])
	}
}

func TestOverrideRejectedAtomically(t *testing.T) {
	e := newTestEngine(t)
	before := e.EffectiveMapping()
	version := e.Version()

	var re *RequestError
	if _, _, err := e.SetOverride(60, []int{999}); err == nil {
		t.Fatal("out-of-range LED accepted")
	} else if !errors.As(err, &re) {
		t.Fatalf("want RequestError, got %T", err)
	}
	if _, _, err := e.SetOverride(10, []int{5}); err == nil {
		t.Fatal("unknown note accepted")
	}

	if !reflect.DeepEqual(before, e.EffectiveMapping()) {
		t.Error("rejected request mutated state")
	}
	if e.Version() != version {
		t.Error("rejected request bumped the version")
	}
}

func TestOverridesSurviveModeSwitch(t *testing.T) {
	e := newTestEngine(t)

	if _, _, err := e.SetOverride(60, []int{7}); err != nil {
		t.Fatal(err)
	}
	if err := e.SetDistributionMode(ModeFixed, true); err != nil {
		t.Fatal(err)
	}
	if got := e.LEDsFor(60); !slices.Equal(got, []int{7}) {
		t.Errorf("override lost across mode switch: %v", got)
	}
}

func TestSetDistributionDeferred(t *testing.T) {
	e := newTestEngine(t)
	before := e.EffectiveMapping()

	cfg := e.Distribution()
	cfg.Mode = ModeFixed
	cfg.LEDsPerKey = 2
	if err := e.SetDistribution(cfg, false); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, e.EffectiveMapping()) {
		t.Fatal("applyMapping=false recomputed immediately")
	}
	if err := e.Recompute(); err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(before, e.EffectiveMapping()) {
		t.Fatal("explicit Recompute did not apply the new config")
	}
}

func TestClearAllOverrides(t *testing.T) {
	e := newTestEngine(t)
	pristine := e.EffectiveMapping()

	for note, leds := range map[uint8][]int{60: {1}, 64: {2, 3}, 67: nil} {
		if _, _, err := e.SetOverride(note, leds); err != nil {
			t.Fatal(err)
		}
	}
	after, err := e.ClearAllOverrides()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(pristine, after) {
		t.Error("clearAll did not restore the pristine state")
	}
}

func TestKeyOffsetBoundaryClamp(t *testing.T) {
	e := newTestEngine(t)

	if err := e.SetKeyOffset(21, 1000); err != nil {
		t.Fatal(err)
	}
	if got := e.LEDsFor(21); !slices.Equal(got, []int{245}) {
		t.Fatalf("A0 with +1000: got %v, want [245]", got)
	}

	// A second key clamped onto the same boundary collides; the validator
	// reports the collision exactly once, it is never silently resolved.
	if err := e.SetKeyOffset(23, 1000); err != nil {
		t.Fatal(err)
	}
	if got := e.LEDsFor(23); !slices.Equal(got, []int{245}) {
		t.Fatalf("B0 with +1000: got %v, want [245]", got)
	}
	rep := e.Validate()
	collisions := 0
	for _, w := range rep.Warnings {
		if strings.Contains(w, "LED 245 is assigned to") {
			collisions++
		}
	}
	if collisions != 1 {
		t.Errorf("got %d collision warnings for LED 245, want 1: %v", collisions, rep.Warnings)
	}
}

func TestSetPianoSizePrunes(t *testing.T) {
	e := newTestEngine(t)

	if _, _, err := e.SetOverride(21, []int{3}); err != nil {
		t.Fatal(err)
	}
	if err := e.SetKeyOffset(22, 4); err != nil {
		t.Fatal(err)
	}
	if err := e.SetPianoSize(61); err != nil { // starts at C2(36): 21/22 fall off
		t.Fatal(err)
	}
	if _, ok := e.Overrides()[21]; ok {
		t.Error("override for a removed key survived the resize")
	}
	if _, ok := e.Offsets().PerKey[22]; ok {
		t.Error("per-key offset for a removed key survived the resize")
	}
	if e.Layout().Size != 61 {
		t.Errorf("layout size %d", e.Layout().Size)
	}
}

func TestSetLEDRangePrunesOverrides(t *testing.T) {
	e := newTestEngine(t)

	if _, _, err := e.SetOverride(60, []int{240, 10}); err != nil {
		t.Fatal(err)
	}
	if err := e.SetLEDRange(LEDRange{0, 99}); err != nil {
		t.Fatal(err)
	}
	if got := e.LEDsFor(60); !slices.Equal(got, []int{10}) {
		t.Errorf("override after range shrink: %v, want [10]", got)
	}
}

func TestPartitionInvariantUnderMixedOps(t *testing.T) {
	e := newTestEngine(t)

	ops := []func() error{
		func() error { _, _, err := e.SetOverride(60, []int{100, 101}); return err },
		func() error { _, _, err := e.SetOverride(59, []int{100}); return err },
		func() error { return e.SetDistributionMode(ModeFixed, true) },
		func() error { _, _, err := e.SetOverride(64, nil); return err },
		func() error { _, err := e.ClearOverride(60); return err },
		func() error { return e.SetGlobalOffset(3) },
		func() error { _, _, err := e.SetOverride(72, []int{0, 1, 2}); return err },
		func() error { _, err := e.ClearOverride(59); return err },
	}
	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		assertPartition(t, e.EffectiveMapping())
	}
}

func TestCustomModeEngine(t *testing.T) {
	e := newTestEngine(t)

	custom := BaseMapping{60: {0, 1}, 61: {2}}
	if err := e.SetCustomMapping(custom); err != nil {
		t.Fatal(err)
	}
	if err := e.SetDistributionMode(ModeCustom, true); err != nil {
		t.Fatal(err)
	}
	eff := e.EffectiveMapping()
	if !slices.Equal(eff[60], []int{0, 1}) || !slices.Equal(eff[61], []int{2}) {
		t.Errorf("custom mapping not applied: %v / %v", eff[60], eff[61])
	}

	// Custom mode without a loaded mapping is a config error.
	e2 := newTestEngine(t)
	if err := e2.SetDistributionMode(ModeCustom, true); err == nil {
		t.Error("custom mode without a mapping accepted")
	}
}
