package mosaicprocess

// #include "gdal.h"
// #include "ogr_srs_api.h"
// #include <string.h>
// #include <stdlib.h>
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"strconv"
	"unsafe"

	pb "github.com/SPohlabeln/S2-TCVIS/worker/mosaicservice"
)

// ProbeGrid opens a raster asset and reports its native grid: size,
// geotransform and declared projection if any. The harmonizer uses
// the first reference-class probe to anchor the scene grid.
func ProbeGrid(in *pb.MosaicGranule) *pb.Result {
	srcFileC := C.CString(in.Path)
	defer C.free(unsafe.Pointer(srcFileC))

	hSrcDS := C.GDALOpenEx(srcFileC, C.GDAL_OF_READONLY|C.GDAL_OF_VERBOSE_ERROR, nil, nil, nil)
	if hSrcDS == nil {
		return &pb.Result{Error: fmt.Sprintf("Failed to open dataset: %v", in.Path)}
	}
	defer C.GDALClose(hSrcDS)

	grid := &pb.GridInfo{
		Width:  int32(C.GDALGetRasterXSize(hSrcDS)),
		Height: int32(C.GDALGetRasterYSize(hSrcDS)),
	}

	var geot [6]C.double
	if C.GDALGetGeoTransform(hSrcDS, &geot[0]) != C.CE_None {
		return &pb.Result{Error: fmt.Sprintf("Dataset has no geotransform: %v", in.Path)}
	}
	grid.Geot = make([]float64, 6)
	for i := range geot {
		grid.Geot[i] = float64(geot[i])
	}

	projRef := C.GDALGetProjectionRef(hSrcDS)
	if C.strlen(projRef) > 0 {
		hSRS := C.OSRNewSpatialReference(projRef)
		defer C.OSRDestroySpatialReference(hSRS)

		codeC := C.OSRGetAuthorityCode(hSRS, nil)
		if codeC != nil {
			if code, err := strconv.Atoi(C.GoString(codeC)); err == nil {
				grid.EPSG = int32(code)
				grid.HasCRS = true
			}
		}
	}

	return &pb.Result{Grid: grid, Error: "OK"}
}
