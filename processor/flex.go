package processor

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"

	"github.com/SPohlabeln/S2-TCVIS/utils"
	pb "github.com/SPohlabeln/S2-TCVIS/worker/mosaicservice"
)

const SizeofUint16 = 2
const SizeofInt16 = 2
const SizeofFloat32 = 4

var nan32 = float32(math.NaN())

// DecodeRaster reinterprets a worker raster payload into its typed
// in-memory form. The byte slice is aliased, not copied.
func DecodeRaster(r *pb.Raster, nameSpace string) (utils.Raster, error) {
	switch r.RasterType {
	case "Byte":
		header := *(*reflect.SliceHeader)(unsafe.Pointer(&r.Data))
		data := *(*[]uint8)(unsafe.Pointer(&header))
		return &utils.ByteRaster{Data: data, Height: int(r.Height), Width: int(r.Width), NoData: r.NoData, NameSpace: nameSpace}, nil
	case "UInt16":
		header := *(*reflect.SliceHeader)(unsafe.Pointer(&r.Data))
		header.Len /= SizeofUint16
		header.Cap /= SizeofUint16
		data := *(*[]uint16)(unsafe.Pointer(&header))
		return &utils.UInt16Raster{Data: data, Height: int(r.Height), Width: int(r.Width), NoData: r.NoData, NameSpace: nameSpace}, nil
	case "Float32":
		header := *(*reflect.SliceHeader)(unsafe.Pointer(&r.Data))
		header.Len /= SizeofFloat32
		header.Cap /= SizeofFloat32
		data := *(*[]float32)(unsafe.Pointer(&header))
		return &utils.Float32Raster{Data: data, Height: int(r.Height), Width: int(r.Width), NoData: r.NoData, NameSpace: nameSpace}, nil
	default:
		return nil, fmt.Errorf("Unsupported raster type %s", r.RasterType)
	}
}

// AsFloat32Plane widens a band to float32 with nodata carried over as
// NaN, the form the cloud classifier consumes.
func AsFloat32Plane(r utils.Raster) ([]float32, error) {
	switch t := r.(type) {
	case *utils.Float32Raster:
		return t.Data, nil
	case *utils.UInt16Raster:
		noData := uint16(t.NoData)
		out := make([]float32, len(t.Data))
		for i, v := range t.Data {
			if v == noData {
				out[i] = nan32
				continue
			}
			out[i] = float32(v)
		}
		return out, nil
	case *utils.ByteRaster:
		noData := uint8(t.NoData)
		out := make([]float32, len(t.Data))
		for i, v := range t.Data {
			if v == noData {
				out[i] = nan32
				continue
			}
			out[i] = float32(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("Raster type not implemented")
	}
}
