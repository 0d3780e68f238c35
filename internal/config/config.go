// Package config handles viewer configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/dreamfield/internal/engine/model"
)

// Config holds all viewer settings.
type Config struct {
	Window  WindowConfig  `yaml:"window" toml:"window"`
	Import  ImportConfig  `yaml:"import" toml:"import"`
	Render  RenderConfig  `yaml:"render" toml:"render"`
	Data    DataConfig    `yaml:"data" toml:"data"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title" toml:"title"`
	Width      int    `yaml:"width" toml:"width"`
	Height     int    `yaml:"height" toml:"height"`
	Fullscreen bool   `yaml:"fullscreen" toml:"fullscreen"`
	VSync      bool   `yaml:"vsync" toml:"vsync"`
	Samples    int    `yaml:"samples" toml:"samples"` // MSAA, 0 disables
}

// ImportConfig mirrors model.ImportOptions.
type ImportConfig struct {
	TextureBits         uint8  `yaml:"texture_bits" toml:"texture_bits"`
	StripMipmapFilters  bool   `yaml:"strip_mipmap_filters" toml:"strip_mipmap_filters"`
	MaxJoints           int    `yaml:"max_joints" toml:"max_joints"`
	StrictExtras        bool   `yaml:"strict_extras" toml:"strict_extras"`
	DuplicateAnimations string `yaml:"duplicate_animations" toml:"duplicate_animations"` // error | rename
}

// RenderConfig holds per-frame rendering settings.
type RenderConfig struct {
	Mode       string     `yaml:"mode" toml:"mode"` // triangles | patches
	FOVDegrees float32    `yaml:"fov_degrees" toml:"fov_degrees"`
	Near       float32    `yaml:"near" toml:"near"`
	Far        float32    `yaml:"far" toml:"far"`
	ClearColor [4]float32 `yaml:"clear_color" toml:"clear_color"`
	FogColor   [4]float32 `yaml:"fog_color" toml:"fog_color"`
	FogStart   float32    `yaml:"fog_start" toml:"fog_start"`
	FogEnd     float32    `yaml:"fog_end" toml:"fog_end"` // 0 disables fog
	DefaultSun bool       `yaml:"default_sun" toml:"default_sun"`
	Animation  string     `yaml:"animation" toml:"animation"`
}

// DataConfig holds asset locations.
type DataConfig struct {
	Model       string   `yaml:"model" toml:"model"`
	SearchPaths []string `yaml:"search_paths" toml:"search_paths"`
	Watch       bool     `yaml:"watch" toml:"watch"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	opts := model.DefaultImportOptions()
	return &Config{
		Window: WindowConfig{
			Title:   "Dreamfield",
			Width:   1280,
			Height:  720,
			VSync:   true,
			Samples: 4,
		},
		Import: ImportConfig{
			TextureBits:         opts.TextureBits,
			StripMipmapFilters:  opts.StripMipmapFilters,
			MaxJoints:           opts.MaxJoints,
			DuplicateAnimations: opts.DuplicateAnimations.String(),
		},
		Render: RenderConfig{
			Mode:       model.RenderTriangles.String(),
			FOVDegrees: 45,
			Near:       0.1,
			Far:        1000,
			ClearColor: [4]float32{0.08, 0.09, 0.11, 1},
			FogColor:   [4]float32{0.08, 0.09, 0.11, 1},
			DefaultSun: true,
		},
		Data: DataConfig{
			SearchPaths: []string{"."},
			Watch:       true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ImportOptions maps the import section onto model.ImportOptions.
func (c *Config) ImportOptions() (model.ImportOptions, error) {
	policy, err := model.ParseDuplicatePolicy(c.Import.DuplicateAnimations)
	if err != nil {
		return model.ImportOptions{}, fmt.Errorf("import.duplicate_animations: %w", err)
	}
	return model.ImportOptions{
		TextureBits:         c.Import.TextureBits,
		StripMipmapFilters:  c.Import.StripMipmapFilters,
		MaxJoints:           c.Import.MaxJoints,
		StrictExtras:        c.Import.StrictExtras,
		DuplicateAnimations: policy,
	}, nil
}

// RenderMode parses render.mode.
func (c *Config) RenderMode() (model.RenderMode, error) {
	switch c.Render.Mode {
	case "", "triangles":
		return model.RenderTriangles, nil
	case "patches":
		return model.RenderPatches, nil
	}
	return model.RenderTriangles, fmt.Errorf("render.mode: unknown mode %q", c.Render.Mode)
}
