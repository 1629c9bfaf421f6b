package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"keylights/config"
	"keylights/debug"
	"keylights/midi"
	"keylights/strip"
	"keylights/theme"
	"keylights/tui"
	"keylights/web"
)

func main() {
	if os.Getenv("KEYLIGHTS_DEBUG") != "" {
		debug.Enable()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	palette, err := cfg.LoadPalette()
	if err != nil {
		fmt.Printf("Error loading palette: %v\n", err)
		os.Exit(1)
	}
	th := theme.New(palette)

	engine, err := cfg.BuildEngine()
	if err != nil {
		fmt.Printf("Error building mapping engine: %v\n", err)
		os.Exit(1)
	}

	state := strip.NewState()

	// Persist the full config after every committed mutation.
	var saveMu sync.Mutex
	persist := func() {
		saveMu.Lock()
		defer saveMu.Unlock()
		cfg.Snapshot(engine)
		if err := cfg.Save(); err != nil {
			debug.Log("main", "save config: %v", err)
		}
	}

	// Create MIDI device manager (handles hot-plug). Ports with a saved
	// controller entry connect per their autoConnect flag; unknown ports
	// connect and get registered.
	deviceMgr := midi.NewDeviceManager()
	deviceMgr.SetConnectFilter(func(portName string) bool {
		if ctrl := cfg.FindController(portName); ctrl != nil {
			return ctrl.AutoConnect
		}
		return true
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go deviceMgr.Run(ctx)
	go routeNoteEvents(ctx, deviceMgr, state, func(id string) {
		cfg.AddController(config.ControllerConfig{PortName: id, AutoConnect: true})
		persist()
	})

	server := web.NewServer(engine, deviceMgr, persist)
	go func() {
		if err := server.Run(cfg.HTTP.Addr); err != nil {
			debug.Log("main", "web server: %v", err)
		}
	}()

	fmt.Println("keylights")
	fmt.Println("Connect a MIDI keyboard any time - it'll be detected automatically")
	fmt.Printf("Dashboard API on %s\n", cfg.HTTP.Addr)
	fmt.Println("")

	m := tui.NewModel(engine, deviceMgr, state, th)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	persist()
}

// routeNoteEvents feeds key presses from every connected keyboard into the
// shared strip state. Each connect spawns a pump that drains the device's
// note channel until it closes, and reports the port to onConnect so it can
// be remembered.
func routeNoteEvents(ctx context.Context, deviceMgr *midi.DeviceManager, state *strip.State, onConnect func(id string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-deviceMgr.Events():
			if !ok {
				return
			}
			switch event.Type {
			case midi.DeviceConnected:
				debug.Log("main", "keyboard connected: %s", event.ID)
				go pumpNotes(event.Controller, state)
				onConnect(event.ID)
			case midi.DeviceDisconnected:
				debug.Log("main", "keyboard disconnected: %s", event.ID)
				// Notes from a vanished device would otherwise stay lit.
				state.ClearAll()
			}
		}
	}
}

func pumpNotes(c midi.Controller, state *strip.State) {
	for ev := range c.NoteEvents() {
		debug.LogEvery(100, "midi", "note %d velocity %d on=%v", ev.Note, ev.Velocity, ev.On)
		if ev.On {
			state.NoteOn(ev.Note, ev.Velocity)
		} else {
			state.NoteOff(ev.Note)
		}
	}
}
