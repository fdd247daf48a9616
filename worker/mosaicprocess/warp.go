package mosaicprocess

// #include "gdal.h"
// #include "gdalwarper.h"
// #include "ogr_srs_api.h"
// #include "cpl_string.h"
// #include <string.h>
// #cgo pkg-config: gdal
// int
// warp_operation(GDALDatasetH hSrcDS, GDALDatasetH hDstDS, int band, int bilinear)
// {
//        int err;
//        GDALWarpOptions *psWOptions;
//        GDALResampleAlg eAlg;
//
//        psWOptions = GDALCreateWarpOptions();
//        psWOptions->nBandCount = 1;
//        psWOptions->panSrcBands = (int *) CPLMalloc(sizeof(int) * 1);
//        psWOptions->panSrcBands[0] = band;
//        psWOptions->panDstBands = (int *) CPLMalloc(sizeof(int) * 1);
//        psWOptions->panDstBands[0] = 1;
//
//        eAlg = bilinear ? GRA_Bilinear : GRA_NearestNeighbour;
//
//        err = GDALReprojectImage(hSrcDS, GDALGetProjectionRef(hSrcDS), hDstDS, GDALGetProjectionRef(hDstDS), eAlg, 0.0, 0.0, NULL, NULL, psWOptions);
//        GDALDestroyWarpOptions(psWOptions);
//
//        return err;
// }
import "C"

import (
	"fmt"
	"log"
	"reflect"
	"unsafe"

	pb "github.com/SPohlabeln/S2-TCVIS/worker/mosaicservice"
)

const SizeofUint16 = 2
const SizeofInt16 = 2
const SizeofFloat32 = 4

var GDALTypes = map[C.GDALDataType]string{0: "Unkown", 1: "Byte", 2: "UInt16", 3: "Int16",
	4: "UInt32", 5: "Int32", 6: "Float32", 7: "Float64",
	8: "CInt16", 9: "CInt32", 10: "CFloat32", 11: "CFloat64",
	12: "TypeCount"}

func initNoDataSlice(rType string, noDataValue float64, ssize int32) []uint8 {
	size := int(ssize)
	switch rType {
	case "Byte":
		out := make([]uint8, size)
		fill := uint8(noDataValue)
		for i := 0; i < size; i++ {
			out[i] = fill
		}
		headr := *(*reflect.SliceHeader)(unsafe.Pointer(&out))
		return *(*[]uint8)(unsafe.Pointer(&headr))
	case "Int16":
		out := make([]int16, size)
		fill := int16(noDataValue)
		for i := 0; i < size; i++ {
			out[i] = fill
		}
		headr := *(*reflect.SliceHeader)(unsafe.Pointer(&out))
		headr.Len *= SizeofInt16
		headr.Cap *= SizeofInt16
		return *(*[]uint8)(unsafe.Pointer(&headr))
	case "UInt16":
		out := make([]uint16, size)
		fill := uint16(noDataValue)
		for i := 0; i < size; i++ {
			out[i] = fill
		}
		headr := *(*reflect.SliceHeader)(unsafe.Pointer(&out))
		headr.Len *= SizeofUint16
		headr.Cap *= SizeofUint16
		return *(*[]uint8)(unsafe.Pointer(&headr))
	case "Float32":
		out := make([]float32, size)
		fill := float32(noDataValue)
		for i := 0; i < size; i++ {
			out[i] = fill
		}
		headr := *(*reflect.SliceHeader)(unsafe.Pointer(&out))
		headr.Len *= SizeofFloat32
		headr.Cap *= SizeofFloat32
		return *(*[]uint8)(unsafe.Pointer(&headr))
	default:
		return []uint8{}
	}
}

// WarpBand reads one band of a scene asset clipped and resampled onto
// the target grid described by the granule. Sources without a declared
// projection are assigned the working CRS; there is no per-band CRS
// auto-detection.
func WarpBand(in *pb.MosaicGranule, verbose bool) *pb.Result {
	filePathCStr := C.CString(in.Path)
	defer C.free(unsafe.Pointer(filePathCStr))

	dump := func(msg interface{}) string {
		log.Println(
			"warp", in.Path,
			"band", in.Band,
			"width", in.Width,
			"height", in.Height,
			"geotransform", in.Geot,
			"resampling", in.Resampling,
			"error", msg,
		)
		return fmt.Sprintf("%v", msg)
	}

	hSrcDS := C.GDALOpen(filePathCStr, C.GA_ReadOnly)
	if hSrcDS == nil {
		return &pb.Result{Error: dump("GDALOpen() fail")}
	}
	defer C.GDALClose(hSrcDS)

	hSRS := C.OSRNewSpatialReference(nil)
	defer C.OSRDestroySpatialReference(hSRS)
	C.OSRImportFromEPSG(hSRS, C.int(in.EPSG))
	var projWKT *C.char
	defer C.free(unsafe.Pointer(projWKT))
	C.OSRExportToWkt(hSRS, &projWKT)

	srcProjRef := C.GDALGetProjectionRef(hSrcDS)
	if C.strlen(srcProjRef) == 0 {
		C.GDALSetProjection(hSrcDS, projWKT)
	}

	bandH := C.GDALGetRasterBand(hSrcDS, C.int(in.Band))
	if bandH == nil {
		return &pb.Result{Error: dump("GDALGetRasterBand() fail")}
	}
	nodata := float64(C.GDALGetRasterNoDataValue(bandH, nil))

	dType := C.GDALGetRasterDataType(bandH)

	canvas := initNoDataSlice(GDALTypes[dType], nodata, in.Width*in.Height)
	if len(canvas) == 0 {
		return &pb.Result{Error: dump(fmt.Sprintf("unsupported raster type %v", GDALTypes[dType]))}
	}

	memStr := C.CString(fmt.Sprintf("MEM:::DATAPOINTER=%d,PIXELS=%d,LINES=%d,DATATYPE=%s", unsafe.Pointer(&canvas[0]), C.int(in.Width), C.int(in.Height), GDALTypes[dType]))
	defer C.free(unsafe.Pointer(memStr))
	hDstDS := C.GDALOpen(memStr, C.GA_Update)
	defer C.GDALClose(hDstDS)

	C.GDALSetProjection(hDstDS, projWKT)

	geot := make([]C.double, 6)
	for i := range in.Geot {
		geot[i] = C.double(in.Geot[i])
	}
	C.GDALSetGeoTransform(hDstDS, &geot[0])

	bilinear := C.int(0)
	if in.Resampling == "bilinear" {
		bilinear = C.int(1)
	}

	cErr := C.warp_operation(hSrcDS, hDstDS, C.int(in.Band), bilinear)
	if cErr != 0 {
		return &pb.Result{Error: dump("warp_operation() fail")}
	}

	if verbose {
		dump("debug")
	}

	return &pb.Result{Raster: &pb.Raster{Data: canvas, NoData: nodata, RasterType: GDALTypes[dType], Width: in.Width, Height: in.Height}, Error: "OK"}
}
