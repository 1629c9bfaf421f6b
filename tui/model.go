package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"keylights/mapping"
	"keylights/midi"
	"keylights/strip"
	"keylights/theme"
	"keylights/widgets"
)

type Model struct {
	Engine    *mapping.Engine
	DeviceMgr *midi.DeviceManager
	Strip     *strip.State
	Theme     *theme.Theme

	width      int
	lastFrame  map[int]uint8
	version    uint64
	devices    []string
	showReport bool
	quitting   bool
}

// TickMsg drives the preview refresh.
type TickMsg time.Time

func NewModel(engine *mapping.Engine, deviceMgr *midi.DeviceManager, st *strip.State, th *theme.Theme) Model {
	return Model{
		Engine:    engine,
		DeviceMgr: deviceMgr,
		Strip:     st,
		Theme:     th,
		width:     80,
	}
}

func tick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "v":
			m.showReport = !m.showReport

		case "r":
			m.Engine.Recompute()

		case "c":
			m.Engine.ClearAllOverrides()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case TickMsg:
		m.lastFrame = m.Strip.Frame(m.Engine.EffectiveMapping())
		m.version = m.Engine.Version()
		if m.DeviceMgr != nil {
			m.devices = m.DeviceMgr.PortNames()
		}
		return m, tick()
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return "bye\n"
	}

	th := m.Theme
	titleStyle := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(th.Warning())

	layout := m.Engine.Layout()
	effective := m.Engine.EffectiveMapping()
	overrides := m.Engine.Overrides()
	ledRange := m.Engine.Range()

	mapped := make(map[int]bool)
	for _, leds := range effective {
		for _, led := range leds {
			mapped[led] = true
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("keylights"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d keys · LEDs %d-%d · %s · v%d",
		layout.KeyCount(), ledRange.Start, ledRange.End, m.Engine.Distribution().Mode, m.version)))
	b.WriteString("\n\n")

	b.WriteString(dimStyle.Render("strip"))
	b.WriteString("\n")
	b.WriteString(widgets.RenderStrip(ledRange, mapped, m.lastFrame, th, m.width))
	b.WriteString("\n\n")

	b.WriteString(dimStyle.Render("keyboard"))
	b.WriteString("\n")
	b.WriteString(widgets.RenderKeyboard(layout, effective, overrides, th, m.width))
	b.WriteString("\n")
	b.WriteString(widgets.RenderLegendItem(th.Symbols.LEDLit, th.Lit(), "lit", "LED under a held key"))
	b.WriteString(widgets.RenderLegendItem(th.Symbols.Override, th.Override(), "override", "pinned"))
	b.WriteString(widgets.RenderLegendItem(th.Symbols.NoLEDs, th.Warning(), "unlit", "key with no LEDs"))
	b.WriteString("\n\n")

	if active := m.Strip.ActiveNotes(); len(active) > 0 {
		notes := make([]uint8, 0, len(active))
		for n := range active {
			notes = append(notes, n)
		}
		sort.Slice(notes, func(i, j int) bool { return notes[i] < notes[j] })
		offsets := m.Engine.Offsets()
		b.WriteString(dimStyle.Render("held"))
		b.WriteString("\n")
		for _, n := range notes {
			k, ok := layout.KeyAt(n)
			if !ok {
				continue
			}
			_, pinned := overrides[n]
			b.WriteString("  " + widgets.RenderKeyDetail(k, effective[n], offsets.For(n), pinned))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(m.devices) == 0 {
		b.WriteString(dimStyle.Render("no MIDI inputs - connect a keyboard any time"))
	} else {
		b.WriteString(dimStyle.Render("inputs: " + strings.Join(m.devices, ", ")))
	}
	b.WriteString("\n")

	if m.showReport {
		rep := m.Engine.Validate()
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("validation"))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("  mapped %d/%d keys (%.0f%%)",
			rep.Statistics.TotalKeysMapped,
			rep.Statistics.PianoSize,
			rep.Statistics.Coverage*100)))
		b.WriteString("\n")
		for _, w := range rep.Warnings {
			b.WriteString(warnStyle.Render("  ! " + w))
			b.WriteString("\n")
		}
		for _, r := range rep.Recommendations {
			b.WriteString(dimStyle.Render("  > " + r))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(widgets.RenderKeyHelp([]widgets.KeySection{
		{Keys: []widgets.KeyBinding{
			{Key: "v", Desc: "toggle validation report"},
			{Key: "r", Desc: "recompute mapping"},
			{Key: "c", Desc: "clear all overrides"},
			{Key: "q", Desc: "quit"},
		}},
	}))
	b.WriteString("\n")

	return b.String()
}
