// Package device describes the display/input class a viewing session runs on.
//
// A Profile is selected once per session and passed by value into the
// normalizer, the session timer and the camera, so none of them query the
// environment themselves.
package device

import "time"

// Class names used in config and flags.
const (
	ClassCompact  = "compact"
	ClassStandard = "standard"
)

// DefaultCompactWidth is the viewport width at or below which a display is
// treated as compact.
const DefaultCompactWidth = 768

// Profile is the read-only bundle of device-dependent viewing parameters.
type Profile struct {
	IsCompact bool `yaml:"-"`

	// Normalization targets.
	TargetSize     float32 `yaml:"target_size"`
	DepthOffset    float32 `yaml:"depth_offset"`
	VerticalOffset float32 `yaml:"vertical_offset"`

	// Camera and orbit bounds.
	CameraDistance float32 `yaml:"camera_distance"`
	CameraFOV      float32 `yaml:"camera_fov"` // degrees
	MinDistance    float32 `yaml:"min_distance"`
	MaxDistance    float32 `yaml:"max_distance"`
	RotateSpeed    float32 `yaml:"rotate_speed"`

	// Target total session length before redirect.
	ViewDelay time.Duration `yaml:"view_delay"`
}

// Standard returns the profile for desktop-class displays.
func Standard() Profile {
	return Profile{
		IsCompact:      false,
		TargetSize:     1.85,
		DepthOffset:    0,
		VerticalOffset: -1,
		CameraDistance: 4,
		CameraFOV:      70,
		MinDistance:    1.5,
		MaxDistance:    8,
		RotateSpeed:    1,
		ViewDelay:      20 * time.Second,
	}
}

// Compact returns the profile for handheld displays. The asset is pulled
// closer to compensate for the narrower field of view.
func Compact() Profile {
	return Profile{
		IsCompact:      true,
		TargetSize:     1.5,
		DepthOffset:    -2,
		VerticalOffset: -1,
		CameraDistance: 5,
		CameraFOV:      75,
		MinDistance:    2,
		MaxDistance:    10,
		RotateSpeed:    0.5,
		ViewDelay:      10 * time.Second,
	}
}

// Class returns ClassCompact or ClassStandard.
func (p Profile) Class() string {
	if p.IsCompact {
		return ClassCompact
	}
	return ClassStandard
}

// Characteristics are the runtime facts profile detection looks at.
type Characteristics struct {
	Width  int
	Height int
	Touch  bool
}

// IsCompact applies the handheld heuristic: any touch input, or a viewport
// no wider than threshold. A threshold <= 0 uses DefaultCompactWidth.
func (c Characteristics) IsCompact(threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultCompactWidth
	}
	return c.Touch || (c.Width > 0 && c.Width <= threshold)
}

// Detect picks between the given compact and standard profiles.
func Detect(c Characteristics, threshold int, compact, standard Profile) Profile {
	if c.IsCompact(threshold) {
		compact.IsCompact = true
		return compact
	}
	standard.IsCompact = false
	return standard
}
