package mosaicprocess

// #include "gdal.h"
// #include <stdlib.h>
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"

	pb "github.com/SPohlabeln/S2-TCVIS/worker/mosaicservice"
)

// MedianTile materializes the full time axis of one band tile in
// worker memory, then reduces it to the temporal median. The complete
// per-pixel time series must be co-resident here: a median cannot be
// assembled from independently scheduled partial reductions.
func MedianTile(in *pb.MosaicGranule) *pb.Result {
	if len(in.Paths) == 0 {
		return &pb.Result{Error: "median: no input files"}
	}

	nPixels := int(in.Width) * int(in.Height)
	if nPixels <= 0 {
		return &pb.Result{Error: fmt.Sprintf("median: invalid tile size %dx%d", in.Width, in.Height)}
	}

	stack := make([][]float64, len(in.Paths))
	noData := make([]float64, len(in.Paths))

	for it, path := range in.Paths {
		layer, nd, err := readWindow(path, int(in.Band), int(in.OffX), int(in.OffY), int(in.Width), int(in.Height))
		if err != nil {
			return &pb.Result{Error: fmt.Sprintf("median: %v", err)}
		}
		stack[it] = layer
		noData[it] = nd
	}

	med := reduceMedian(stack, noData, nPixels)

	headr := *(*reflect.SliceHeader)(unsafe.Pointer(&med))
	headr.Len *= SizeofFloat32
	headr.Cap *= SizeofFloat32
	dBytes := *(*[]uint8)(unsafe.Pointer(&headr))

	return &pb.Result{Raster: &pb.Raster{Data: dBytes, NoData: math.NaN(), RasterType: "Float32", Width: in.Width, Height: in.Height}, Error: "OK"}
}

func readWindow(path string, band, offX, offY, width, height int) ([]float64, float64, error) {
	filePathCStr := C.CString(path)
	defer C.free(unsafe.Pointer(filePathCStr))

	hSrcDS := C.GDALOpen(filePathCStr, C.GA_ReadOnly)
	if hSrcDS == nil {
		return nil, 0, fmt.Errorf("GDALOpen() fail: %v", path)
	}
	defer C.GDALClose(hSrcDS)

	bandH := C.GDALGetRasterBand(hSrcDS, C.int(band))
	if bandH == nil {
		return nil, 0, fmt.Errorf("GDALGetRasterBand() fail: %v band %d", path, band)
	}

	dsWidth := int(C.GDALGetRasterXSize(hSrcDS))
	dsHeight := int(C.GDALGetRasterYSize(hSrcDS))
	if offX+width > dsWidth || offY+height > dsHeight {
		return nil, 0, fmt.Errorf("window %d,%d %dx%d outside raster %dx%d: %v", offX, offY, width, height, dsWidth, dsHeight, path)
	}

	var hasNoData C.int
	noData := float64(C.GDALGetRasterNoDataValue(bandH, &hasNoData))
	if hasNoData == 0 {
		noData = math.NaN()
	}

	data := make([]float64, width*height)
	gerr := C.GDALRasterIO(bandH, C.GF_Read, C.int(offX), C.int(offY), C.int(width), C.int(height),
		unsafe.Pointer(&data[0]), C.int(width), C.int(height), C.GDT_Float64, 0, 0)
	if gerr != 0 {
		return nil, 0, fmt.Errorf("GDALRasterIO() fail: %v band %d", path, band)
	}

	return data, noData, nil
}
