package jpeg

import (
	"fmt"

	"github.com/rwcarlsen/goexif/tiff"
)

const maxGPSDigits = 6

// gpsDigits returns how many decimals a rational component deserves given
// its denominator: 1 -> 0, 10 -> 1, 100 -> 2 ...
func gpsDigits(den int64) int {
	digits := 0
	for den > 1 && digits <= maxGPSDigits {
		den /= 10
		digits++
	}
	if digits > maxGPSDigits {
		digits = maxGPSDigits
	}
	return digits
}

// formatGPSCoordinate renders a degrees, minutes, seconds triplet as
// "N 37d 48m 30.25s". A missing reference or value shows as '?'.
func formatGPSCoordinate(ref string, t *tiff.Tag) string {
	r := "?"
	if ref != "" {
		r = ref[:1]
	}
	if t == nil || t.Count < 3 || t.Format() != tiff.RatVal {
		return r + " ?"
	}

	var parts [3]string
	units := [3]string{"d", "m", "s"}
	for i := 0; i < 3; i++ {
		num, den, err := t.Rat2(i)
		if err != nil {
			return r + " ?"
		}
		digits := gpsDigits(den)
		width := 2 + digits
		if digits > 0 {
			width++
		}
		var v float64
		if den != 0 {
			v = float64(num) / float64(den)
		}
		parts[i] = fmt.Sprintf("%*.*f%s", width, digits, v, units[i])
	}
	return fmt.Sprintf("%s %s %s %s", r, parts[0], parts[1], parts[2])
}

// formatGPSAltitude renders the altitude in meters, prefixed with '-' below
// sea level and a space otherwise.
func formatGPSAltitude(ref int, t *tiff.Tag) string {
	if t == nil || t.Count == 0 {
		return ""
	}
	v, ok := tagFloat(t, 0)
	if !ok {
		return ""
	}
	sign := " "
	if ref == 1 {
		sign = "-"
	}
	return fmt.Sprintf("%s%.2fm", sign, v)
}
