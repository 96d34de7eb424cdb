package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagFormat     = flag.String("format", "", "Output format: gltf or glb")
	flagPermissive = flag.Bool("permissive", false, "Downgrade some format-validity errors to warnings")
	flagFlip       = flag.Bool("flip", false, "Flip the Z axis of node transforms")
	flagKeep       = flag.Bool("keep-defaults", false, "Emit values matching schema defaults")
	flagEmbed      = flag.Bool("embed", false, "Embed images into the binary payload")
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
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagFormat != "" {
		cfg.Output.Format = *flagFormat
	}
	if *flagPermissive {
		cfg.Export.Permissive = true
	}
	if *flagFlip {
		cfg.Export.FlipCoordinates = true
	}
	if *flagKeep {
		cfg.Export.KeepDefaults = true
	}
	if *flagEmbed {
		cfg.Output.EmbedImages = true
	}
}
