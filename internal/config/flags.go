package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagModel   = flag.String("model", "", "Model file to open")
	flagAnim    = flag.String("anim", "", "Animation to play")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagWidth   = flag.Int("width", 0, "Window width")
	flagHeight  = flag.Int("height", 0, "Window height")
	flagPatches = flag.Bool("patches", false, "Draw tessellation patches")
	flagStrict  = flag.Bool("strict", false, "Fail on unreadable extras")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagModel != "" {
		cfg.Data.Model = *flagModel
	} else if flag.NArg() > 0 {
		cfg.Data.Model = flag.Arg(0)
	}
	if *flagAnim != "" {
		cfg.Render.Animation = *flagAnim
	}
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagPatches {
		cfg.Render.Mode = "patches"
	}
	if *flagStrict {
		cfg.Import.StrictExtras = true
	}
}
