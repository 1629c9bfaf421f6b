package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"keylights/mapping"
	"keylights/theme"
)

// ControllerConfig defines a saved MIDI input to auto-connect.
type ControllerConfig struct {
	PortName    string `json:"portName"`
	AutoConnect bool   `json:"autoConnect"`
}

// StripConfig describes the physical LED strip and its active window.
type StripConfig struct {
	LEDCount int              `json:"ledCount"`
	Range    mapping.LEDRange `json:"range"`
}

// CalibrationConfig is the persisted engine state: everything needed to
// rebuild the effective mapping after a restart.
type CalibrationConfig struct {
	PianoSize    int                        `json:"pianoSize"`
	Strip        StripConfig                `json:"strip"`
	Distribution mapping.DistributionConfig `json:"distribution"`
	Offsets      mapping.OffsetState        `json:"offsets"`
	Overrides    map[uint8][]int            `json:"overrides,omitempty"`
	CustomFile   string                     `json:"customFile,omitempty"` // YAML mapping for custom mode
}

// HTTPConfig holds the dashboard API listener settings.
type HTTPConfig struct {
	Addr string `json:"addr,omitempty"`
}

// UIConfig selects the terminal preview's appearance.
type UIConfig struct {
	Palette string `json:"palette,omitempty"` // path to a GIMP .gpl file
}

// Config is the main configuration structure.
type Config struct {
	Calibration CalibrationConfig  `json:"calibration"`
	Controllers []ControllerConfig `json:"controllers,omitempty"`
	HTTP        HTTPConfig         `json:"http,omitempty"`
	UI          UIConfig           `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults: a full 88-key
// piano on a 246-LED strip, proportional distribution.
func DefaultConfig() *Config {
	return &Config{
		Calibration: CalibrationConfig{
			PianoSize: 88,
			Strip: StripConfig{
				LEDCount: 246,
				Range:    mapping.LEDRange{Start: 0, End: 245},
			},
			Distribution: mapping.DistributionConfig{
				Mode:       mapping.ModeProportional,
				LEDsPerKey: 2,
			},
			Offsets: mapping.NewOffsetState(),
		},
		HTTP: HTTPConfig{Addr: ":8088"},
	}
}

// ConfigDir returns the config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "keylights"), nil
}

// ConfigPath returns the full path to config.json.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Calibration.Offsets.PerKey == nil {
		cfg.Calibration.Offsets.PerKey = make(map[uint8]int)
	}
	return &cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildEngine constructs a mapping engine from the persisted calibration
// and replays offsets and overrides onto it.
func (c *Config) BuildEngine() (*mapping.Engine, error) {
	cal := c.Calibration

	// Custom mode needs its mapping file loaded before the mode can take
	// effect, so the engine starts proportional and switches after.
	bootDist := cal.Distribution
	if bootDist.Mode == mapping.ModeCustom {
		bootDist.Mode = mapping.ModeProportional
	}
	eng, err := mapping.NewEngine(cal.PianoSize, cal.Strip.LEDCount, cal.Strip.Range, bootDist)
	if err != nil {
		return nil, err
	}
	if cal.CustomFile != "" {
		custom, err := mapping.LoadCustomMapping(cal.CustomFile, eng.Layout(), cal.Strip.Range)
		if err != nil {
			return nil, err
		}
		if err := eng.SetCustomMapping(custom); err != nil {
			return nil, err
		}
	}
	if cal.Distribution.Mode == mapping.ModeCustom {
		if err := eng.SetDistributionMode(mapping.ModeCustom, true); err != nil {
			return nil, err
		}
	}
	if cal.Offsets.Global != 0 {
		if err := eng.SetGlobalOffset(cal.Offsets.Global); err != nil {
			return nil, err
		}
	}
	for note, off := range cal.Offsets.PerKey {
		if err := eng.SetKeyOffset(note, off); err != nil {
			return nil, err
		}
	}
	for note, leds := range cal.Overrides {
		if _, _, err := eng.SetOverride(note, leds); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

// Snapshot copies the engine's current state back into the config so a
// Save persists the live calibration.
func (c *Config) Snapshot(eng *mapping.Engine) {
	c.Calibration.PianoSize = eng.Layout().Size
	c.Calibration.Strip.LEDCount = eng.LEDCount()
	c.Calibration.Strip.Range = eng.Range()
	c.Calibration.Distribution = eng.Distribution()
	c.Calibration.Offsets = eng.Offsets()
	c.Calibration.Overrides = eng.Overrides()
}

// LoadPalette resolves the configured palette file, falling back to the
// builtin palette when none is set.
func (c *Config) LoadPalette() (*theme.Palette, error) {
	if c.UI.Palette == "" {
		return theme.Default(), nil
	}
	return theme.LoadGPL(c.UI.Palette)
}

// FindController finds a controller config by port name.
func (c *Config) FindController(portName string) *ControllerConfig {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == portName {
			return &c.Controllers[i]
		}
	}
	return nil
}

// AddController adds or updates a controller config.
func (c *Config) AddController(ctrl ControllerConfig) {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == ctrl.PortName {
			c.Controllers[i] = ctrl
			return
		}
	}
	c.Controllers = append(c.Controllers, ctrl)
}
