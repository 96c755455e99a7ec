// Package config loads the user rc file that supplies colors, key bindings
// and pager settings -- the ambient configuration layer spec.md leaves
// implicit (see SPEC_FULL.md §4.13).
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tide.sh/pkg/ui"
)

// Config is the parsed contents of an rc.yaml file.
type Config struct {
	Colors       map[string]ColorSpec `yaml:"colors"`
	Bindings     map[string]string    `yaml:"bindings"`
	Pager        string               `yaml:"pager"`
	HistoryLimit int                  `yaml:"history_limit"`
}

// ColorSpec is the YAML-friendly spelling of a ui.Style.
type ColorSpec struct {
	Fg         string `yaml:"fg"`
	Bg         string `yaml:"bg"`
	Bold       bool   `yaml:"bold"`
	Underlined bool   `yaml:"underlined"`
}

var namedColors = map[string]ui.Color{
	"black":   ui.Black,
	"red":     ui.Red,
	"green":   ui.Green,
	"yellow":  ui.Yellow,
	"blue":    ui.Blue,
	"magenta": ui.Magenta,
	"cyan":    ui.Cyan,
	"white":   ui.White,
}

// Style converts a ColorSpec to a ui.Style. Unknown color names are left
// unset rather than erroring, since a typo'd color in an rc file should
// degrade to plain text, not abort startup.
func (c ColorSpec) Style() ui.Style {
	return ui.Style{
		Foreground: namedColors[c.Fg],
		Background: namedColors[c.Bg],
		Bold:       c.Bold,
		Underlined: c.Underlined,
	}
}

// Default returns the built-in configuration used when no rc file is
// present.
func Default() Config {
	return Config{
		Colors: map[string]ColorSpec{
			"command":        {Fg: "green"},
			"param":          {},
			"error":          {Bg: "red"},
			"comment":        {Fg: "cyan"},
			"autosuggestion": {Fg: "white"},
		},
		Bindings:     map[string]string{},
		Pager:        "",
		HistoryLimit: 0,
	}
}

// Load reads and parses path. A missing file is not an error: it yields
// Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	var onDisk Config
	if err := yaml.Unmarshal(data, &onDisk); err != nil {
		return cfg, err
	}
	if onDisk.Colors != nil {
		for k, v := range onDisk.Colors {
			cfg.Colors[k] = v
		}
	}
	if onDisk.Bindings != nil {
		for k, v := range onDisk.Bindings {
			cfg.Bindings[k] = v
		}
	}
	if onDisk.Pager != "" {
		cfg.Pager = onDisk.Pager
	}
	if onDisk.HistoryLimit != 0 {
		cfg.HistoryLimit = onDisk.HistoryLimit
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
