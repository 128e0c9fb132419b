// Package config handles viewer configuration loading and management.
package config

import (
	"time"

	"github.com/Faultbox/arviewer/internal/device"
	"github.com/Faultbox/arviewer/internal/engine/lighting"
	"github.com/Faultbox/arviewer/pkg/math"
)

// Config holds all viewer settings.
type Config struct {
	Viewer   ViewerConfig   `yaml:"viewer"`
	Session  SessionConfig  `yaml:"session"`
	Profiles ProfilesConfig `yaml:"profiles"`
	Scene    SceneConfig    `yaml:"scene"`
	Graphics GraphicsConfig `yaml:"graphics"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ViewerConfig holds the asset source and hand-off settings.
type ViewerConfig struct {
	AssetPath       string        `yaml:"asset_path"`
	DecoderLocation string        `yaml:"decoder_location"` // empty disables compressed geometry
	RedirectTarget  string        `yaml:"redirect_target"`
	LoadTimeout     time.Duration `yaml:"load_timeout"`
}

// SessionConfig holds the viewing session timing floor.
type SessionConfig struct {
	MinimumViewTime time.Duration `yaml:"minimum_view_time"`
}

// ProfilesConfig holds both device profiles; one is picked per session.
type ProfilesConfig struct {
	Compact  device.Profile `yaml:"compact"`
	Standard device.Profile `yaml:"standard"`
}

// LightConfig is a single directional light.
type LightConfig struct {
	Direction [3]float32 `yaml:"direction"`
	Intensity float32    `yaml:"intensity"`
}

// SceneConfig holds the camera planes and lighting fed to the renderer.
type SceneConfig struct {
	Near             float32       `yaml:"near"`
	Far              float32       `yaml:"far"`
	AmbientIntensity float32       `yaml:"ambient_intensity"`
	Lights           []LightConfig `yaml:"lights"`
	ClearColor       [4]float32    `yaml:"clear_color"`
	DampingFactor    float32       `yaml:"damping_factor"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	Fullscreen   bool   `yaml:"fullscreen"`
	VSync        bool   `yaml:"vsync"`
	CompactWidth int    `yaml:"compact_width"`
	Profile      string `yaml:"profile"` // "", "compact" or "standard"
}

// ServerConfig holds the asset server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	Root string `yaml:"root"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Viewer: ViewerConfig{
			AssetPath:       "models/model.glb",
			DecoderLocation: "https://www.gstatic.com/draco/versioned/decoders/1.5.6/",
			RedirectTarget:  "/thank-you",
			LoadTimeout:     60 * time.Second,
		},
		Session: SessionConfig{
			MinimumViewTime: 10 * time.Second,
		},
		Profiles: ProfilesConfig{
			Compact:  device.Compact(),
			Standard: device.Standard(),
		},
		Scene: SceneConfig{
			Near:             0.1,
			Far:              1000,
			AmbientIntensity: 1.5,
			Lights: []LightConfig{
				{Direction: [3]float32{5, 5, 5}, Intensity: 2},
				{Direction: [3]float32{-5, 5, -5}, Intensity: 1},
				{Direction: [3]float32{0, -5, 0}, Intensity: 0.5},
			},
			ClearColor:    [4]float32{0, 0, 0, 1},
			DampingFactor: 0.05,
		},
		Graphics: GraphicsConfig{
			Width:        1280,
			Height:       720,
			Fullscreen:   false,
			VSync:        true,
			CompactWidth: device.DefaultCompactWidth,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8088",
			Root: "public",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// SelectProfile resolves the session's device profile. An explicit
// graphics.profile wins over detection.
func (c *Config) SelectProfile(ch device.Characteristics) device.Profile {
	compact, standard := c.Profiles.Compact, c.Profiles.Standard
	compact.IsCompact = true
	standard.IsCompact = false

	switch c.Graphics.Profile {
	case device.ClassCompact:
		return compact
	case device.ClassStandard:
		return standard
	}
	return device.Detect(ch, c.Graphics.CompactWidth, compact, standard)
}

// Rig builds the lighting rig. Light directions are positions relative to
// the origin.
func (s SceneConfig) Rig() lighting.Rig {
	lights := make([]lighting.Directional, 0, len(s.Lights))
	for _, l := range s.Lights {
		lights = append(lights, lighting.Directional{
			Direction: math.V3(l.Direction),
			Intensity: l.Intensity,
		})
	}
	return lighting.NewRig(s.AmbientIntensity, lights...)
}
