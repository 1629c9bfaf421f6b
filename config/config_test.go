package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPaletteDefault(t *testing.T) {
	cfg := DefaultConfig()
	p, err := cfg.LoadPalette()
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Colors) == 0 {
		t.Error("default palette is empty")
	}
}

func TestLoadPaletteFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.gpl")
	data := "GIMP Palette\nName: user\n10 20 30\n40 50 60\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.UI.Palette = path
	p, err := cfg.LoadPalette()
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "user" || len(p.Colors) != 2 {
		t.Errorf("palette = %q with %d colors", p.Name, len(p.Colors))
	}

	cfg.UI.Palette = filepath.Join(t.TempDir(), "missing.gpl")
	if _, err := cfg.LoadPalette(); err == nil {
		t.Error("missing palette file accepted")
	}
}

func TestControllerRegistry(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.FindController("CASIO USB-MIDI 0") != nil {
		t.Error("unknown port found")
	}

	cfg.AddController(ControllerConfig{PortName: "CASIO USB-MIDI 0", AutoConnect: true})
	ctrl := cfg.FindController("CASIO USB-MIDI 0")
	if ctrl == nil || !ctrl.AutoConnect {
		t.Fatalf("controller = %+v", ctrl)
	}

	// Re-adding the same port updates in place instead of duplicating.
	cfg.AddController(ControllerConfig{PortName: "CASIO USB-MIDI 0", AutoConnect: false})
	if len(cfg.Controllers) != 1 {
		t.Errorf("%d controller entries, want 1", len(cfg.Controllers))
	}
	if cfg.FindController("CASIO USB-MIDI 0").AutoConnect {
		t.Error("autoConnect not updated")
	}
}
