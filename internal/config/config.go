// Package config loads the metronome settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/chronometro-go/internal/audio"
	"github.com/cbegin/chronometro-go/internal/effects"
	"github.com/cbegin/chronometro-go/internal/engine"
	"github.com/cbegin/chronometro-go/internal/pattern"
	"github.com/cbegin/chronometro-go/internal/samplesrc"
	"github.com/cbegin/chronometro-go/internal/tempo"
)

const (
	MinSampleRate     = 8000
	MaxSampleRate     = 192000
	DefaultSampleRate = 48000

	MaxBufferMS = 1000
)

// SoundKind selects the click voice.
type SoundKind string

const (
	SoundSine   SoundKind = "sine"
	SoundSample SoundKind = "sample"
)

var ErrInvalid = errors.New("config: invalid value")

type SoundConfig struct {
	Kind        SoundKind `yaml:"kind"`
	FrequencyHz float64   `yaml:"frequency_hz"`
	Path        string    `yaml:"path,omitempty"`
	MaxFrames   int       `yaml:"max_frames"`
}

type EffectConfig struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

type Config struct {
	SampleRate  int            `yaml:"sample_rate"`
	BPM         float64        `yaml:"bpm"`
	BeatsPerBar int            `yaml:"beats_per_bar"`
	Sound       SoundConfig    `yaml:"sound"`
	GainDB      float64        `yaml:"gain_db"`
	Backend     string         `yaml:"backend"`
	BufferMS    int            `yaml:"buffer_ms"`
	Effects     []EffectConfig `yaml:"effects,omitempty"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:  DefaultSampleRate,
		BPM:         tempo.DefaultBPM,
		BeatsPerBar: pattern.DefaultBeats,
		Sound: SoundConfig{
			Kind:        SoundSine,
			FrequencyHz: engine.DefaultToneHz,
			MaxFrames:   samplesrc.DefaultMaxFrames,
		},
		GainDB:   effects.DefaultGainDB,
		Backend:  string(audio.BackendEbiten),
		BufferMS: int(audio.DefaultBufferSize.Milliseconds()),
	}
}

// DefaultPath is ~/.config/chronometro/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "chronometro", "config.yaml"), nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		return cfg, cfg.Normalize()
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and normalises the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Normalize clamps numeric fields into range and fills zero values with
// defaults. Unknown enum names are an error.
func (c *Config) Normalize() error {
	def := DefaultConfig()
	switch {
	case c.SampleRate == 0:
		c.SampleRate = def.SampleRate
	case c.SampleRate < MinSampleRate:
		c.SampleRate = MinSampleRate
	case c.SampleRate > MaxSampleRate:
		c.SampleRate = MaxSampleRate
	}
	c.BPM = tempo.ClampBPM(c.BPM)
	c.BeatsPerBar = pattern.ClampBeats(c.BeatsPerBar)
	c.GainDB = effects.ClampGainDB(c.GainDB)

	c.Sound.Kind = SoundKind(strings.ToLower(string(c.Sound.Kind)))
	switch c.Sound.Kind {
	case "":
		c.Sound.Kind = SoundSine
	case SoundSine, SoundSample:
	default:
		return fmt.Errorf("%w: sound kind %q", ErrInvalid, c.Sound.Kind)
	}
	if c.Sound.Kind == SoundSample && c.Sound.Path == "" {
		return fmt.Errorf("%w: sample sound needs a path", ErrInvalid)
	}
	if !(c.Sound.FrequencyHz > 0) {
		c.Sound.FrequencyHz = def.Sound.FrequencyHz
	}
	if c.Sound.FrequencyHz > float64(c.SampleRate)/2 {
		c.Sound.FrequencyHz = float64(c.SampleRate) / 2
	}
	if c.Sound.MaxFrames <= 0 {
		c.Sound.MaxFrames = def.Sound.MaxFrames
	}

	backend, err := audio.ParseBackend(c.Backend)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	c.Backend = string(backend)
	if c.BufferMS <= 0 {
		c.BufferMS = def.BufferMS
	}
	if c.BufferMS > MaxBufferMS {
		c.BufferMS = MaxBufferMS
	}
	for i, e := range c.Effects {
		if strings.TrimSpace(e.Type) == "" {
			return fmt.Errorf("%w: effect %d has no type", ErrInvalid, i)
		}
	}
	return nil
}

// EffectSpecs converts the effect list for effects.Build.
func (c *Config) EffectSpecs() []effects.Spec {
	specs := make([]effects.Spec, len(c.Effects))
	for i, e := range c.Effects {
		specs[i] = effects.Spec{Type: e.Type, Params: e.Params}
	}
	return specs
}
