// Package config handles exporter configuration loading and management.
package config

import (
	"go.uber.org/zap"

	"github.com/Faultbox/gltfexport/pkg/gltf"
)

// Config holds all exporter settings.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// OutputConfig holds output format settings.
type OutputConfig struct {
	Format      string `yaml:"format"`       // "gltf" or "glb"
	EmbedImages bool   `yaml:"embed_images"` // bundle images into the binary payload
}

// ExportConfig holds the per-attribute decision knobs consulted while
// converting, plus the strings stamped into the document header.
type ExportConfig struct {
	Permissive      bool   `yaml:"permissive"`       // downgrade some format checks to warnings
	KeepDefaults    bool   `yaml:"keep_defaults"`    // emit values the schema defaults anyway
	FlipCoordinates bool   `yaml:"flip_coordinates"` // right- to left-handed Z flip
	SuppressUnused  bool   `yaml:"suppress_unused"`  // silence unused-data diagnostics
	Generator       string `yaml:"generator"`
	Copyright       string `yaml:"copyright"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Format:      "glb",
			EmbedImages: true,
		},
		Export: ExportConfig{
			Generator: "gltfexport",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// SessionOptions lowers the configuration into the options one conversion
// session consumes.
func (c *Config) SessionOptions(log *zap.Logger) gltf.Options {
	return gltf.Options{
		Binary:          c.Output.Format == "glb",
		EmbedImages:     c.Output.EmbedImages,
		Permissive:      c.Export.Permissive,
		KeepDefaults:    c.Export.KeepDefaults,
		FlipCoordinates: c.Export.FlipCoordinates,
		SuppressUnused:  c.Export.SuppressUnused,
		Generator:       c.Export.Generator,
		Copyright:       c.Export.Copyright,
		Logger:          log,
	}
}
