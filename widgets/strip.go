package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"keylights/mapping"
	"keylights/theme"
)

// RenderStrip renders one row of the LED strip, wrapping at width cells
// per line. mapped marks indices owned by some key, lit holds the
// currently lit indices.
func RenderStrip(r mapping.LEDRange, mapped map[int]bool, lit map[int]uint8, th *theme.Theme, width int) string {
	if width < 1 {
		width = 80
	}
	litStyle := lipgloss.NewStyle().Foreground(th.Lit())
	unlitStyle := lipgloss.NewStyle().Foreground(th.Accent())
	freeStyle := lipgloss.NewStyle().Foreground(th.Muted())

	var lines []string
	var line strings.Builder
	count := 0
	for i := r.Start; i <= r.End; i++ {
		switch {
		case lit[i] > 0:
			line.WriteString(litStyle.Render(string(th.Symbols.LEDLit)))
		case mapped[i]:
			line.WriteString(unlitStyle.Render(string(th.Symbols.LEDUnlit)))
		default:
			line.WriteString(freeStyle.Render(string(th.Symbols.LEDFree)))
		}
		count++
		if count == width {
			lines = append(lines, line.String())
			line.Reset()
			count = 0
		}
	}
	if count > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// RenderKeyboard renders the keys in keyboard order with their LED counts:
// white/black cells, override and zero-allocation markers.
func RenderKeyboard(layout *mapping.PianoLayout, effective map[uint8][]int, overrides map[uint8][]int, th *theme.Theme, width int) string {
	if width < 1 {
		width = 80
	}
	whiteStyle := lipgloss.NewStyle().Foreground(th.FG())
	blackStyle := lipgloss.NewStyle().Foreground(th.Muted())
	overrideStyle := lipgloss.NewStyle().Foreground(th.Override())
	warnStyle := lipgloss.NewStyle().Foreground(th.Warning())

	var lines []string
	var line strings.Builder
	count := 0
	for _, k := range layout.Keys {
		_, pinned := overrides[k.MIDINote]
		leds := effective[k.MIDINote]
		switch {
		case pinned:
			line.WriteString(overrideStyle.Render(string(th.Symbols.Override)))
		case len(leds) == 0:
			line.WriteString(warnStyle.Render(string(th.Symbols.NoLEDs)))
		case k.IsBlack:
			line.WriteString(blackStyle.Render(string(th.Symbols.BlackKey)))
		default:
			line.WriteString(whiteStyle.Render(string(th.Symbols.WhiteKey)))
		}
		count++
		if count == width {
			lines = append(lines, line.String())
			line.Reset()
			count = 0
		}
	}
	if count > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// RenderKeyDetail renders a one-line summary for a single key.
func RenderKeyDetail(k mapping.KeySpec, leds []int, offset int, pinned bool) string {
	kind := "white"
	if k.IsBlack {
		kind = "black"
	}
	detail := fmt.Sprintf("%-4s (%d, %s)  LEDs %v", k.Name, k.MIDINote, kind, leds)
	if offset != 0 {
		detail += fmt.Sprintf("  offset %+d", offset)
	}
	if pinned {
		detail += "  [override]"
	}
	return detail
}

// RenderLegendItem renders a single legend item: "● Name - description"
func RenderLegendItem(symbol rune, color lipgloss.Color, name, desc string) string {
	s := lipgloss.NewStyle().Foreground(color).Render(string(symbol))
	return fmt.Sprintf("  %s %s - %s", s, name, desc)
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
