package utils

import (
	"fmt"
	"strings"
)

// 16 point compass rose, clockwise from north in 22.5 degree steps.
var compassRose = []string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// ManageDegrees normalizes a field notebook angle such as "25°", "20-25"
// or "flat". Degree symbols are dropped, a range keeps its upper value and
// "flat" reads as 0. The result is still text; callers parse it.
func ManageDegrees(v string) string {
	v = strings.NewReplacer("°", "", "Â", "").Replace(v)
	if i := strings.LastIndex(v, "-"); i >= 0 {
		v = v[i+1:]
	}
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "flat") {
		return "0"
	}
	return v
}

// CardinalToDegrees converts a compass direction to degrees from north.
// Separators such as "S/SW" are removed so it reads as SSW. Directions
// longer than three letters fall back to their first letter and assumed is
// set so the caller can report it.
func CardinalToDegrees(cardinal string) (degrees float64, assumed bool, err error) {
	d := strings.ToUpper(strings.NewReplacer("/", "", "-", "", " ", "").Replace(cardinal))
	if len(d) > 3 {
		d = d[:1]
		assumed = true
	}
	for i, dir := range compassRose {
		if dir == d {
			return float64(i) * (360.0 / float64(len(compassRose))), assumed, nil
		}
	}
	return 0, assumed, fmt.Errorf("invalid cardinal direction %q", cardinal)
}
