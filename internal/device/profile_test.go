package device

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	s := Standard()
	if s.IsCompact {
		t.Error("Standard().IsCompact = true, want false")
	}
	if s.TargetSize != 1.85 {
		t.Errorf("Standard().TargetSize = %v, want 1.85", s.TargetSize)
	}
	if s.ViewDelay != 20*time.Second {
		t.Errorf("Standard().ViewDelay = %v, want 20s", s.ViewDelay)
	}

	c := Compact()
	if !c.IsCompact {
		t.Error("Compact().IsCompact = false, want true")
	}
	if c.DepthOffset != -2 {
		t.Errorf("Compact().DepthOffset = %v, want -2", c.DepthOffset)
	}
	if c.ViewDelay != 10*time.Second {
		t.Errorf("Compact().ViewDelay = %v, want 10s", c.ViewDelay)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		c    Characteristics
		want string
	}{
		{"desktop", Characteristics{Width: 1920, Height: 1080}, ClassStandard},
		{"narrow", Characteristics{Width: 390, Height: 844}, ClassCompact},
		{"threshold inclusive", Characteristics{Width: DefaultCompactWidth}, ClassCompact},
		{"touch laptop", Characteristics{Width: 1440, Touch: true}, ClassCompact},
		{"unknown size", Characteristics{}, ClassStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.c, 0, Compact(), Standard())
			if got.Class() != tt.want {
				t.Errorf("Detect(%+v) = %s, want %s", tt.c, got.Class(), tt.want)
			}
		})
	}
}

func TestDetectCustomThreshold(t *testing.T) {
	c := Characteristics{Width: 1000}
	if got := Detect(c, 1024, Compact(), Standard()); !got.IsCompact {
		t.Error("width 1000 with threshold 1024 should be compact")
	}
}
