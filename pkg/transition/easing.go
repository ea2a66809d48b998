package transition

import (
	"fmt"
	"strings"
)

// Easing maps linear progress t in [0,1] to eased progress in [0,1].
// Implementations must be monotonic non-decreasing with Easing(0)=0 and Easing(1)=1.
type Easing func(t float64) float64

// Linear moves at constant speed.
func Linear(t float64) float64 {
	return clamp01(t)
}

// Smoothstep accelerates then decelerates: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	t = clamp01(t)
	return t * t * (3 - 2*t)
}

// EasingByName resolves "linear" or "smoothstep" (the default for an empty name).
func EasingByName(name string) (Easing, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "smoothstep":
		return Smoothstep, nil
	case "linear":
		return Linear, nil
	default:
		return nil, fmt.Errorf("unknown easing %q", name)
	}
}

func clamp01(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t
}
