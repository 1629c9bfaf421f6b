package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// LED strip cells
	LEDLit   rune // ● lit LED
	LEDUnlit rune // · mapped but dark
	LEDFree  rune // - not mapped to any key

	// Keyboard cells
	WhiteKey rune // ▓
	BlackKey rune // █
	Override rune // ◆ key pinned by a manual override
	NoLEDs   rune // ○ key with an empty allocation
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			LEDLit:   '●',
			LEDUnlit: '·',
			LEDFree:  '-',

			WhiteKey: '▓',
			BlackKey: '█',
			Override: '◆',
			NoLEDs:   '○',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG       = 0.0
	RoleSurface  = 0.1
	RoleMuted    = 0.2
	RoleFG       = 0.4
	RoleAccent   = 0.5
	RoleOverride = 0.6
	RoleLit      = 0.7
	RoleWarning  = 0.8
	RoleSuccess  = 1.0
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Lit() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleLit))
}

func (t *Theme) Override() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleOverride))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
