package utils

// #include "gdal.h"
// #include "ogr_api.h"
// #include "ogr_srs_api.h"
// #include <stdlib.h>
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"math"
	"unsafe"
)

const WGS84WKT = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.01745329251994328,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`

// UTMZoneEPSG derives the UTM EPSG code covering a geographic centroid.
// Northern hemisphere maps into the 326xx series, southern into 327xx.
func UTMZoneEPSG(lon, lat float64) int {
	zone := int(math.Floor((lon+180.0)/6.0)) + 1
	if lat >= 0 {
		return 32600 + zone
	}
	return 32700 + zone
}

// BBox2WKT formats a min/max bounding box as a closed WKT polygon.
// BBox is xMin, yMin, xMax, yMax.
func BBox2WKT(bbox []float64) string {
	return fmt.Sprintf("POLYGON ((%f %f, %f %f, %f %f, %f %f, %f %f))",
		bbox[0], bbox[1], bbox[2], bbox[1], bbox[2], bbox[3], bbox[0], bbox[3], bbox[0], bbox[1])
}

func newWGS84SRS() C.OGRSpatialReferenceH {
	wktC := C.CString(WGS84WKT)
	defer C.free(unsafe.Pointer(wktC))
	hSRS := C.OSRNewSpatialReference(wktC)
	C.OSRSetAxisMappingStrategy(hSRS, C.OAMS_TRADITIONAL_GIS_ORDER)
	return hSRS
}

func newEPSGSRS(epsg int) C.OGRSpatialReferenceH {
	hSRS := C.OSRNewSpatialReference(nil)
	C.OSRImportFromEPSG(hSRS, C.int(epsg))
	C.OSRSetAxisMappingStrategy(hSRS, C.OAMS_TRADITIONAL_GIS_ORDER)
	return hSRS
}

// EPSGToWKT expands an EPSG code into its projection WKT.
func EPSGToWKT(epsg int) (string, error) {
	hSRS := newEPSGSRS(epsg)
	defer C.OSRDestroySpatialReference(hSRS)

	var projWKT *C.char
	if C.OSRExportToWkt(hSRS, &projWKT) != C.OGRERR_NONE {
		return "", fmt.Errorf("EPSG:%d not recognised", epsg)
	}
	defer C.free(unsafe.Pointer(projWKT))
	return C.GoString(projWKT), nil
}

// ProjectBBox projects the four corners of a geographic bounding box
// into the target CRS and returns the enclosing axis-aligned bounding
// box. Boxes spanning the antimeridian are outside the supported
// envelope of this routine.
func ProjectBBox(bbox []float64, epsg int) ([]float64, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bounding box must have 4 values, got %d", len(bbox))
	}

	srcSRS := newWGS84SRS()
	defer C.OSRDestroySpatialReference(srcSRS)
	dstSRS := newEPSGSRS(epsg)
	defer C.OSRDestroySpatialReference(dstSRS)

	hCT := C.OCTNewCoordinateTransformation(srcSRS, dstSRS)
	if hCT == nil {
		return nil, fmt.Errorf("no coordinate transformation from EPSG:4326 to EPSG:%d", epsg)
	}
	defer C.OCTDestroyCoordinateTransformation(hCT)

	xs := []C.double{C.double(bbox[0]), C.double(bbox[2]), C.double(bbox[0]), C.double(bbox[2])}
	ys := []C.double{C.double(bbox[1]), C.double(bbox[1]), C.double(bbox[3]), C.double(bbox[3])}

	if C.OCTTransform(hCT, C.int(len(xs)), &xs[0], &ys[0], nil) == 0 {
		return nil, fmt.Errorf("corner transformation to EPSG:%d failed", epsg)
	}

	xMin, xMax := float64(xs[0]), float64(xs[0])
	yMin, yMax := float64(ys[0]), float64(ys[0])
	for i := 1; i < len(xs); i++ {
		xMin = math.Min(xMin, float64(xs[i]))
		xMax = math.Max(xMax, float64(xs[i]))
		yMin = math.Min(yMin, float64(ys[i]))
		yMax = math.Max(yMax, float64(ys[i]))
	}

	return []float64{xMin, yMin, xMax, yMax}, nil
}

// FootprintBBox returns the geographic envelope of a WKT footprint as
// xMin, yMin, xMax, yMax.
func FootprintBBox(wkt string) ([]float64, error) {
	srs := newWGS84SRS()
	defer C.OSRDestroySpatialReference(srs)

	hGeom, err := geometryFromWKT(wkt, srs)
	if err != nil {
		return nil, err
	}
	defer C.OGR_G_DestroyGeometry(hGeom)

	var env C.OGREnvelope
	C.OGR_G_GetEnvelope(hGeom, &env)
	return []float64{float64(env.MinX), float64(env.MinY), float64(env.MaxX), float64(env.MaxY)}, nil
}

func geometryFromWKT(wkt string, hSRS C.OGRSpatialReferenceH) (C.OGRGeometryH, error) {
	wktC := C.CString(wkt)
	defer C.free(unsafe.Pointer(wktC))

	var hGeom C.OGRGeometryH
	wktPtr := wktC
	if C.OGR_G_CreateFromWkt(&wktPtr, hSRS, &hGeom) != C.OGRERR_NONE {
		return nil, fmt.Errorf("invalid WKT geometry: %.60s", wkt)
	}
	return hGeom, nil
}

// IntersectionRatio computes the fraction of the projected AOI covered
// by a scene footprint. Both geometries arrive in geographic
// coordinates; area is measured in the working CRS. Disjoint
// geometries score 0.
func IntersectionRatio(footprintWKT string, aoiBBoxGeo []float64, epsg int) (float64, error) {
	srcSRS := newWGS84SRS()
	defer C.OSRDestroySpatialReference(srcSRS)
	dstSRS := newEPSGSRS(epsg)
	defer C.OSRDestroySpatialReference(dstSRS)

	hCT := C.OCTNewCoordinateTransformation(srcSRS, dstSRS)
	if hCT == nil {
		return 0, fmt.Errorf("no coordinate transformation from EPSG:4326 to EPSG:%d", epsg)
	}
	defer C.OCTDestroyCoordinateTransformation(hCT)

	hAOI, err := geometryFromWKT(BBox2WKT(aoiBBoxGeo), srcSRS)
	if err != nil {
		return 0, err
	}
	defer C.OGR_G_DestroyGeometry(hAOI)

	hFoot, err := geometryFromWKT(footprintWKT, srcSRS)
	if err != nil {
		return 0, err
	}
	defer C.OGR_G_DestroyGeometry(hFoot)

	if C.OGR_G_Transform(hAOI, hCT) != C.OGRERR_NONE {
		return 0, fmt.Errorf("AOI transformation to EPSG:%d failed", epsg)
	}
	if C.OGR_G_Transform(hFoot, hCT) != C.OGRERR_NONE {
		return 0, fmt.Errorf("footprint transformation to EPSG:%d failed", epsg)
	}

	aoiArea := float64(C.OGR_G_Area(hAOI))
	if aoiArea <= 0 {
		return 0, fmt.Errorf("projected AOI has zero area")
	}

	hInter := C.OGR_G_Intersection(hFoot, hAOI)
	if hInter == nil {
		return 0, nil
	}
	defer C.OGR_G_DestroyGeometry(hInter)

	if C.OGR_G_IsEmpty(hInter) != 0 {
		return 0, nil
	}

	return float64(C.OGR_G_Area(hInter)) / aoiArea, nil
}
