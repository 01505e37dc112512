package config

import "sort"

// Presets are partial configurations applied over DefaultConfig.
var Presets = map[string]func(*Config){
	// classic mirrors the original wall: 4x4, 20% blank, 20 requested images.
	"classic": func(c *Config) {
		c.Grid.Size = 4
		c.Grid.BlankFraction = 0.2
		c.Grid.DisplayedImages = 20
	},
	"compact": func(c *Config) {
		c.Grid.Size = 3
		c.Grid.BlankFraction = 0.2
		c.Grid.DisplayedImages = 6
	},
	"dense": func(c *Config) {
		c.Grid.Size = 5
		c.Grid.BlankFraction = 0
		c.Grid.DisplayedImages = 25
	},
	// fadeaway discards a clicked tile with a fade-out instead of restoring it.
	"fadeaway": func(c *Config) {
		c.Drag.ReleasePolicy = ReleaseDiscard
		c.Fade.Duration = 45
	},
	"offline": func(c *Config) {
		c.Loader.Offline = true
	},
}

// GetPreset returns DefaultConfig with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
