package utils

import (
	"math"
)

// QuantizeReflectance converts a floating-point reflectance plane into
// the unsigned 16-bit product encoding: values clipped to
// [0, ReflectanceScale], missing observations (NaN or the input nodata
// value) encoded as 0. The 0 sentinel doubles as true zero reflectance;
// the convention is kept for bit compatibility with existing archives.
func QuantizeReflectance(in *Float32Raster) *UInt16Raster {
	out := &UInt16Raster{
		Data:      make([]uint16, len(in.Data)),
		Height:    in.Height,
		Width:     in.Width,
		NoData:    0,
		NameSpace: in.NameSpace,
	}

	for i, v := range in.Data {
		if IsNoData(float64(v), in.NoData) {
			continue
		}
		if v <= 0 {
			continue
		}
		if v >= ReflectanceScale {
			out.Data[i] = ReflectanceScale
			continue
		}
		out.Data[i] = uint16(v)
	}
	return out
}

// ClipReflectance normalizes an already-integer reflectance plane to
// the product encoding: values above ReflectanceScale clipped, input
// nodata remapped to the 0 sentinel.
func ClipReflectance(in *UInt16Raster) *UInt16Raster {
	out := &UInt16Raster{
		Data:      make([]uint16, len(in.Data)),
		Height:    in.Height,
		Width:     in.Width,
		NoData:    0,
		NameSpace: in.NameSpace,
	}

	noData := uint16(in.NoData)
	hasNoData := !math.IsNaN(in.NoData)
	for i, v := range in.Data {
		if hasNoData && v == noData {
			continue
		}
		if v >= ReflectanceScale {
			out.Data[i] = ReflectanceScale
			continue
		}
		out.Data[i] = v
	}
	return out
}

// IsNoData reports whether a float64 sample encodes a missing
// observation under a given nodata value. NaN always does.
func IsNoData(v, noData float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return !math.IsNaN(noData) && v == noData
}
