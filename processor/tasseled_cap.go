package processor

import (
	"fmt"

	"github.com/SPohlabeln/S2-TCVIS/utils"
)

// Tasseled-cap coefficients over the six reflectance bands, in
// canonical stacking order Blue, Green, Red, NIR, SWIR1, SWIR2.
// Rows: brightness, greenness, wetness.
var tcCoefficients = [3][6]float64{
	{0.3037, 0.2793, 0.4743, 0.5585, 0.5082, 0.1863},
	{-0.2848, -0.2435, -0.5436, 0.7243, 0.0840, -0.1800},
	{0.1509, 0.1973, 0.3279, 0.3406, -0.7112, -0.4572},
}

var tcLabels = []string{"TCB", "TCG", "TCW"}

// TasseledCap projects a six-band reflectance mosaic onto the
// brightness/greenness/wetness axes. Reflectance is rescaled by
// 1/10000 first; a 0 sample in any band marks the pixel missing and
// yields NaN in all three outputs. Deterministic, no hidden state, the
// input is left untouched.
func TasseledCap(bands []*utils.UInt16Raster) ([]*utils.Float32Raster, error) {
	if len(bands) != 6 {
		return nil, fmt.Errorf("tasseled cap needs 6 bands, got %d", len(bands))
	}

	width, height := bands[0].Width, bands[0].Height
	nPixels := width * height
	for _, band := range bands {
		if band.Width != width || band.Height != height {
			return nil, fmt.Errorf("band %s is %dx%d, expecting %dx%d", band.NameSpace, band.Width, band.Height, width, height)
		}
		if len(band.Data) != nPixels {
			return nil, fmt.Errorf("band %s has %d samples, expecting %d", band.NameSpace, len(band.Data), nPixels)
		}
	}

	out := make([]*utils.Float32Raster, 3)
	for i := range out {
		out[i] = &utils.Float32Raster{
			Data:      make([]float32, nPixels),
			Height:    height,
			Width:     width,
			NoData:    float64(nan32),
			NameSpace: tcLabels[i],
		}
	}

	var refl [6]float64
	for p := 0; p < nPixels; p++ {
		missing := false
		for b := 0; b < 6; b++ {
			v := bands[b].Data[p]
			if v == 0 {
				missing = true
				break
			}
			refl[b] = float64(v) / utils.ReflectanceScale
		}

		if missing {
			for i := range out {
				out[i].Data[p] = nan32
			}
			continue
		}

		for i := range tcCoefficients {
			var sum float64
			for b := 0; b < 6; b++ {
				sum += tcCoefficients[i][b] * refl[b]
			}
			out[i].Data[p] = float32(sum)
		}
	}

	return out, nil
}
