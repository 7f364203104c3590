package profile

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Depth conventions.
const (
	// SnowHeight puts zero at the base of the profile, increasing upward.
	SnowHeight = "snow_height"
	// SurfaceDatum puts zero at the snow surface with negative depths below.
	SurfaceDatum = "surface_datum"
)

// finite returns the non-NaN values of xs.
func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// nanMax is the largest non-NaN value, NaN when there is none.
func nanMax(xs []float64) float64 {
	f := finite(xs)
	if len(f) == 0 {
		return math.NaN()
	}
	return floats.Max(f)
}

func nanMin(xs []float64) float64 {
	f := finite(xs)
	if len(f) == 0 {
		return math.NaN()
	}
	return floats.Min(f)
}

// StandardizeDepth converts depths to the desired convention. The current
// convention of non-SMP data is read from the sign of the last sample. SMP
// depths are positive distances below the surface and are only flipped or
// offset from their maximum. The input is not modified.
func StandardizeDepth(depths []float64, format string, isSMP bool) ([]float64, error) {
	if format != SnowHeight && format != SurfaceDatum {
		return nil, fmt.Errorf("%w %q, options are %s and %s", ErrUnknownDepthFormat, format, SnowHeight, SurfaceDatum)
	}
	out := make([]float64, len(depths))
	copy(out, depths)
	if len(depths) == 0 {
		return out, nil
	}
	maxDepth, minDepth := nanMax(depths), nanMin(depths)
	bottomIsNegative := depths[len(depths)-1] < 0

	switch {
	case format == SnowHeight && isSMP:
		for i, d := range depths {
			out[i] = math.Abs(d - maxDepth)
		}
	case format == SnowHeight && bottomIsNegative:
		floats.AddConst(math.Abs(minDepth), out)
	case format == SurfaceDatum && isSMP:
		floats.Scale(-1, out)
	case format == SurfaceDatum && !bottomIsNegative:
		floats.AddConst(-maxDepth, out)
	}
	return out, nil
}
