// Package config holds the analysis, thumbnail, effect and export defaults,
// optionally overridden by a TOML or YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/linuxmatters/jivecut/internal/mains"
)

// Config is the full set of tunables.
type Config struct {
	Waveform   WaveformConfig  `toml:"waveform" yaml:"waveform"`
	Speech     SpeechConfig    `toml:"speech" yaml:"speech"`
	Thumbnails ThumbnailConfig `toml:"thumbnails" yaml:"thumbnails"`
	Effects    EffectsConfig   `toml:"effects" yaml:"effects"`
	Export     ExportConfig    `toml:"export" yaml:"export"`
}

type WaveformConfig struct {
	Width int `toml:"width" yaml:"width"` // buckets per waveform
}

type SpeechConfig struct {
	ThresholdDB float64 `toml:"threshold_db" yaml:"threshold_db"`
	MinDuration float64 `toml:"min_duration" yaml:"min_duration"` // seconds
}

type ThumbnailConfig struct {
	Count  int `toml:"count" yaml:"count"`
	Width  int `toml:"width" yaml:"width"`
	Height int `toml:"height" yaml:"height"`
}

type EffectsConfig struct {
	Volume  float64 `toml:"volume" yaml:"volume"`
	FadeIn  float64 `toml:"fade_in" yaml:"fade_in"`
	FadeOut float64 `toml:"fade_out" yaml:"fade_out"`
}

type ExportConfig struct {
	FPS int `toml:"fps" yaml:"fps"` // 0 = locale default
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Waveform: WaveformConfig{Width: 800},
		Speech: SpeechConfig{
			ThresholdDB: -40.0,
			MinDuration: 0.2,
		},
		Thumbnails: ThumbnailConfig{
			Count:  10,
			Width:  160,
			Height: 90,
		},
		Effects: EffectsConfig{Volume: 1.0},
		Export:  ExportConfig{FPS: 0},
	}
}

// Load overlays the file at path on the defaults. The format follows the
// extension: .yaml/.yml is YAML, anything else TOML. An empty path looks for
// jivecut.toml or jivecut.yaml in the working directory and returns the
// defaults when neither exists.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = findConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func findConfigFile() string {
	for _, p := range []string{"jivecut.toml", "jivecut.yaml", "jivecut.yml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate rejects settings no operation can honour.
func (c *Config) Validate() error {
	errs := []error{c.Waveform.Validate(), c.Speech.Validate(), c.Effects.Validate()}
	if c.Thumbnails.Count < 0 || c.Thumbnails.Width <= 0 || c.Thumbnails.Height <= 0 {
		errs = append(errs, fmt.Errorf("thumbnails need count >= 0 and positive size, got %d of %dx%d",
			c.Thumbnails.Count, c.Thumbnails.Width, c.Thumbnails.Height))
	}
	if c.Export.FPS < 0 {
		errs = append(errs, fmt.Errorf("export.fps must not be negative, got %d", c.Export.FPS))
	}
	return errors.Join(errs...)
}

func (w WaveformConfig) Validate() error {
	if w.Width < 0 {
		return fmt.Errorf("waveform.width must not be negative, got %d", w.Width)
	}
	return nil
}

func (s SpeechConfig) Validate() error {
	var errs []error
	if s.ThresholdDB > 0 {
		errs = append(errs, fmt.Errorf("speech.threshold_db must be <= 0 dBFS, got %.1f", s.ThresholdDB))
	}
	if s.MinDuration < 0 {
		errs = append(errs, fmt.Errorf("speech.min_duration must not be negative, got %.3f", s.MinDuration))
	}
	return errors.Join(errs...)
}

func (e EffectsConfig) Validate() error {
	var errs []error
	if e.Volume < 0 {
		errs = append(errs, fmt.Errorf("effects.volume must not be negative, got %g", e.Volume))
	}
	if e.FadeIn < 0 {
		errs = append(errs, fmt.Errorf("effects.fade_in must not be negative, got %g", e.FadeIn))
	}
	if e.FadeOut < 0 {
		errs = append(errs, fmt.Errorf("effects.fade_out must not be negative, got %g", e.FadeOut))
	}
	return errors.Join(errs...)
}

// ExportFPS returns the configured export frame rate, or the locale default.
func (c *Config) ExportFPS() int {
	if c.Export.FPS > 0 {
		return c.Export.FPS
	}
	return mains.DefaultFrameRate()
}
