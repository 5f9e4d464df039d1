package spotify

import "math"

// scaleUnit maps a 0-1 analysis value onto 0-100.
func scaleUnit(value float64) int {
	return clampPercent(math.Round(value * 100))
}

// scaleLoudness maps the provider's -60..0 dB range onto 0-100.
func scaleLoudness(value float64) int {
	return clampPercent(math.Round((value + 60) / 60 * 100))
}

func clampPercent(value float64) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return int(value)
}
