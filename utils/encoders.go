package utils

// #include "gdal.h"
// #include "ogr_srs_api.h"
// #include "cpl_string.h"
// #include <stdlib.h>
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"unsafe"
)

var GDALTypes = map[string]C.GDALDataType{"Unkown": 0, "Byte": 1, "UInt16": 2, "Int16": 3,
	"UInt32": 4, "Int32": 5, "Float32": 6, "Float64": 7,
	"CInt16": 8, "CInt32": 9, "CFloat32": 10, "CFloat64": 11,
	"TypeCount": 12}

// GeoTIFFOptions selects the creation profile of a product file.
// Integer reflectance products use horizontal differencing
// (predictor 2), floating point products use predictor 3.
type GeoTIFFOptions struct {
	BlockSize int
	Predictor int
}

// SceneTIFFOptions is the profile of per-scene and median products.
var SceneTIFFOptions = GeoTIFFOptions{BlockSize: 512, Predictor: 2}

// TCTIFFOptions is the profile of tasseled-cap products.
var TCTIFFOptions = GeoTIFFOptions{BlockSize: 1024, Predictor: 3}

// EncodeGeoTIFFFile writes a multi-band raster as a tiled,
// deflate-compressed, nodata-tagged GeoTIFF. Band order follows the
// input slice; each band's NameSpace becomes its description.
func EncodeGeoTIFFFile(path string, rs []Raster, grid *Grid, opts GeoTIFFOptions) error {
	w, h, rType, err := ValidateRasterSlice(rs)
	if err != nil {
		return fmt.Errorf("Error validating raster: %v", err)
	}
	if w != grid.Width || h != grid.Height {
		return fmt.Errorf("raster size %dx%d does not match grid %dx%d", w, h, grid.Width, grid.Height)
	}

	var driverNameC = C.CString("GTiff")
	defer C.free(unsafe.Pointer(driverNameC))
	hDriver := C.GDALGetDriverByName(driverNameC)
	if hDriver == nil {
		return fmt.Errorf("GTiff driver not available")
	}

	creationOpts := []string{
		"TILED=YES",
		"COMPRESS=DEFLATE",
		"BIGTIFF=IF_SAFER",
		fmt.Sprintf("PREDICTOR=%d", opts.Predictor),
		fmt.Sprintf("BLOCKXSIZE=%d", opts.BlockSize),
		fmt.Sprintf("BLOCKYSIZE=%d", opts.BlockSize),
	}

	var papszOptions **C.char
	for _, opt := range creationOpts {
		optC := C.CString(opt)
		papszOptions = C.CSLAddString(papszOptions, optC)
		C.free(unsafe.Pointer(optC))
	}
	defer C.CSLDestroy(papszOptions)

	pathC := C.CString(path)
	defer C.free(unsafe.Pointer(pathC))

	hDstDS := C.GDALCreate(hDriver, pathC, C.int(w), C.int(h), C.int(len(rs)), GDALTypes[rType], papszOptions)
	if hDstDS == nil {
		return fmt.Errorf("Error creating raster: %v", path)
	}
	defer C.GDALClose(hDstDS)

	hSRS := C.OSRNewSpatialReference(nil)
	defer C.OSRDestroySpatialReference(hSRS)
	C.OSRImportFromEPSG(hSRS, C.int(grid.EPSG))
	var projWKT *C.char
	defer C.free(unsafe.Pointer(projWKT))
	C.OSRExportToWkt(hSRS, &projWKT)
	C.GDALSetProjection(hDstDS, projWKT)

	geot := make([]C.double, 6)
	for i, v := range grid.Geot {
		geot[i] = C.double(v)
	}
	C.GDALSetGeoTransform(hDstDS, &geot[0])

	for i, r := range rs {
		hBand := C.GDALGetRasterBand(hDstDS, C.int(i+1))
		gerr := C.CPLErr(0)
		var nameSpace string

		switch t := r.(type) {
		case *ByteRaster:
			C.GDALSetRasterNoDataValue(hBand, C.double(t.NoData))
			gerr = C.GDALRasterIO(hBand, C.GF_Write, 0, 0, C.int(t.Width), C.int(t.Height), unsafe.Pointer(&t.Data[0]), C.int(t.Width), C.int(t.Height), C.GDT_Byte, 0, 0)
			nameSpace = t.NameSpace

		case *UInt16Raster:
			C.GDALSetRasterNoDataValue(hBand, C.double(t.NoData))
			gerr = C.GDALRasterIO(hBand, C.GF_Write, 0, 0, C.int(t.Width), C.int(t.Height), unsafe.Pointer(&t.Data[0]), C.int(t.Width), C.int(t.Height), C.GDT_UInt16, 0, 0)
			nameSpace = t.NameSpace

		case *Float32Raster:
			C.GDALSetRasterNoDataValue(hBand, C.double(t.NoData))
			gerr = C.GDALRasterIO(hBand, C.GF_Write, 0, 0, C.int(t.Width), C.int(t.Height), unsafe.Pointer(&t.Data[0]), C.int(t.Width), C.int(t.Height), C.GDT_Float32, 0, 0)
			nameSpace = t.NameSpace

		default:
			return fmt.Errorf("Unsupported gdal data type")
		}

		if gerr != 0 {
			return fmt.Errorf("Error writing raster band: %d", i)
		}

		if len(nameSpace) > 0 {
			nsC := C.CString(nameSpace)
			C.GDALSetDescription(C.GDALMajorObjectH(hBand), nsC)
			C.free(unsafe.Pointer(nsC))
		}
	}

	return nil
}
