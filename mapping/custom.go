package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CustomMappingFile is the on-disk shape of a hand-built mapping for
// ModeCustom. Keys may be MIDI note numbers ("60") or pitch names ("C4").
type CustomMappingFile struct {
	Name string           `yaml:"name,omitempty"`
	Keys map[string][]int `yaml:"keys"`
}

// LoadCustomMapping reads and validates a custom mapping file against the
// given layout and range.
func LoadCustomMapping(path string, layout *PianoLayout, r LEDRange) (BaseMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read custom mapping %s: %w", path, err)
	}
	return ParseCustomMapping(data, layout, r)
}

// ParseCustomMapping parses YAML custom-mapping bytes.
func ParseCustomMapping(data []byte, layout *PianoLayout, r LEDRange) (BaseMapping, error) {
	var file CustomMappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal custom mapping: %w", err)
	}
	m := make(BaseMapping, len(file.Keys))
	for key, leds := range file.Keys {
		note, err := ParseNote(key)
		if err != nil {
			return nil, invalidConfig("custom mapping key %q: %v", key, err)
		}
		if _, dup := m[note]; dup {
			return nil, invalidConfig("custom mapping lists %s twice", NoteName(note))
		}
		m[note] = normalizeLEDSet(leds)
	}
	if err := ValidateBaseMapping(m, layout, r); err != nil {
		return nil, err
	}
	return m, nil
}
