package mosaicprocess

import (
	"math"
	"sort"
)

// reduceMedian computes the per-pixel temporal median over a tile
// stack. Each layer carries its own nodata value; nodata observations
// are dropped before ranking. Odd counts take the middle ranked value,
// even counts the arithmetic mean of the two middle values. Pixels
// with no valid observation come out NaN. Reduction stays in float64
// until the caller quantizes, so no early rounding skews the ranking.
func reduceMedian(stack [][]float64, noData []float64, nPixels int) []float32 {
	out := make([]float32, nPixels)
	vals := make([]float64, 0, len(stack))

	for i := 0; i < nPixels; i++ {
		vals = vals[:0]
		for it := range stack {
			v := stack[it][i]
			if v != v {
				continue
			}
			nd := noData[it]
			if nd == nd && v == nd {
				continue
			}
			vals = append(vals, v)
		}

		if len(vals) == 0 {
			out[i] = float32(math.NaN())
			continue
		}

		sort.Float64s(vals)
		mid := len(vals) / 2
		if len(vals)%2 == 1 {
			out[i] = float32(vals[mid])
		} else {
			out[i] = float32((vals[mid-1] + vals[mid]) / 2.0)
		}
	}

	return out
}
