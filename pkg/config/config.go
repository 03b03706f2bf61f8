// Package config provides export settings loading, validation, and the
// derivation of per-job encoder configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/user/gifcast/pkg/ports"
	"github.com/user/gifcast/pkg/timing"
)

// Preset selects a quantization-format/color-budget tradeoff.
type Preset string

const (
	// PresetQuality favors palette fidelity: wide packed format, full budget.
	PresetQuality Preset = "quality"
	// PresetBalanced is the default tradeoff.
	PresetBalanced Preset = "balanced"
	// PresetSpeed favors throughput: narrow packed format, capped budget.
	PresetSpeed Preset = "speed"
)

// ExportSettings is the user-facing settings record for one export.
type ExportSettings struct {
	Quality       float64 `yaml:"quality"`        // 0.1 - 1.0
	FrameSkip     int     `yaml:"frame_skip"`     // 1 - 5
	PlaybackSpeed float64 `yaml:"playback_speed"` // 0.25 - 4.0
	LoopCount     int     `yaml:"loop_count"`     // 0 = infinite
	Dithering     bool    `yaml:"dithering"`
	EncoderID     string  `yaml:"encoder"` // empty = registry default
	EncoderPreset Preset  `yaml:"preset"`
}

// Defaults returns settings with default values.
func Defaults() ExportSettings {
	return ExportSettings{
		Quality:       0.7,
		FrameSkip:     1,
		PlaybackSpeed: 1.0,
		LoopCount:     0,
		Dithering:     true,
		EncoderPreset: PresetBalanced,
	}
}

// LoadFromFile loads settings from a YAML file over the defaults.
func LoadFromFile(path string) (ExportSettings, error) {
	settings := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, err
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parse settings: %w", err)
	}
	return settings, nil
}

// Validate checks every field independently. Invalid settings are rejected
// before a job starts.
func (s ExportSettings) Validate() error {
	if s.Quality < 0.1 || s.Quality > 1.0 {
		return fmt.Errorf("settings: quality %.2f out of range [0.1,1.0]", s.Quality)
	}
	if s.FrameSkip < 1 || s.FrameSkip > 5 {
		return fmt.Errorf("settings: frame skip %d out of range [1,5]", s.FrameSkip)
	}
	if s.PlaybackSpeed < 0.25 || s.PlaybackSpeed > 4.0 {
		return fmt.Errorf("settings: playback speed %.2f out of range [0.25,4.0]", s.PlaybackSpeed)
	}
	if s.LoopCount < 0 {
		return fmt.Errorf("settings: negative loop count %d", s.LoopCount)
	}
	switch s.EncoderPreset {
	case PresetQuality, PresetBalanced, PresetSpeed, "":
	default:
		return fmt.Errorf("settings: unknown preset %q", s.EncoderPreset)
	}
	return nil
}

// MaxColors derives the palette budget from quality and preset.
func (s ExportSettings) MaxColors() int {
	budget := 16 + int(s.Quality*240+0.5)
	if budget > 256 {
		budget = 256
	}
	if s.EncoderPreset == PresetSpeed && budget > 128 {
		budget = 128
	}
	return budget
}

// QuantizeFormat derives the packed color space from the preset.
func (s ExportSettings) QuantizeFormat() ports.QuantizeFormat {
	if s.EncoderPreset == PresetSpeed {
		return ports.QuantizeRGB444
	}
	return ports.QuantizeRGB565
}

// PresetSizeFactor returns the preset's multiplier for size estimation.
func (s ExportSettings) PresetSizeFactor() float64 {
	switch s.EncoderPreset {
	case PresetSpeed:
		return 0.85
	case PresetQuality:
		return 1.1
	default:
		return 1.0
	}
}

// EncoderConfig derives the immutable per-job encoder configuration from
// these settings, the output dimensions, and the source frame rate.
func (s ExportSettings) EncoderConfig(width, height int, sourceFPS float64) (ports.EncoderConfig, error) {
	if err := s.Validate(); err != nil {
		return ports.EncoderConfig{}, err
	}

	delayCs := timing.FrameDelay(sourceFPS, s.PlaybackSpeed, s.FrameSkip)
	cfg := ports.EncoderConfig{
		Width:          width,
		Height:         height,
		MaxColors:      s.MaxColors(),
		FrameDelayMs:   delayCs * 10,
		LoopCount:      s.LoopCount,
		QuantizeFormat: s.QuantizeFormat(),
		Dithering:      s.Dithering,
	}
	if err := cfg.Validate(); err != nil {
		return ports.EncoderConfig{}, err
	}
	return cfg, nil
}

// EstimateOutputSize returns the advisory byte estimate for an export of
// frameCount source frames at the given output dimensions.
func (s ExportSettings) EstimateOutputSize(frameCount, width, height int) int64 {
	return timing.EstimateOutputSize(frameCount, width, height,
		s.Quality, s.FrameSkip, s.Dithering, s.PresetSizeFactor())
}
