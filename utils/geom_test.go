package utils

import (
	"testing"
)

func TestUTMZoneEPSG(t *testing.T) {
	cases := []struct {
		lon, lat float64
		epsg     int
	}{
		{9.0, 53.5, 32632},    // Hamburg
		{151.2, -33.9, 32756}, // Sydney
		{-0.1, 51.5, 32630},   // London
		{-180.0, 10.0, 32601},
		{179.9, -10.0, 32760},
	}
	for _, c := range cases {
		if actual := UTMZoneEPSG(c.lon, c.lat); actual != c.epsg {
			t.Errorf("UTMZoneEPSG(%v, %v) = %d, expecting %d", c.lon, c.lat, actual, c.epsg)
		}
	}
}

func TestBBox2WKT(t *testing.T) {
	wkt := BBox2WKT([]float64{10, 50, 11, 51})
	bbox, err := FootprintBBox(wkt)
	if err != nil {
		t.Fatalf("generated WKT did not parse: %v", err)
	}
	expected := []float64{10, 50, 11, 51}
	for i := range expected {
		if diff := bbox[i] - expected[i]; diff < -1e-9 || diff > 1e-9 {
			t.Errorf("envelope component %d is %v, expecting %v", i, bbox[i], expected[i])
		}
	}
}

func TestIntersectionRatio(t *testing.T) {
	aoi := []float64{10, 50, 11, 51}

	// half coverage, measured in geographic coordinates
	half := BBox2WKT([]float64{10, 50, 10.5, 51})
	ratio, err := IntersectionRatio(half, aoi, 4326)
	if err != nil {
		t.Fatalf("ratio failed: %v", err)
	}
	if ratio < 0.49 || ratio > 0.51 {
		t.Errorf("ratio is %v, expecting about 0.5", ratio)
	}

	full := BBox2WKT([]float64{9, 49, 12, 52})
	ratio, err = IntersectionRatio(full, aoi, 4326)
	if err != nil {
		t.Fatalf("ratio failed: %v", err)
	}
	if ratio < 0.99 {
		t.Errorf("ratio is %v, expecting about 1.0 for a covering footprint", ratio)
	}

	disjoint := BBox2WKT([]float64{20, 20, 21, 21})
	ratio, err = IntersectionRatio(disjoint, aoi, 4326)
	if err != nil {
		t.Fatalf("ratio failed: %v", err)
	}
	if ratio != 0 {
		t.Errorf("ratio is %v, expecting 0 for disjoint geometries", ratio)
	}
}

func TestProjectBBoxBadInput(t *testing.T) {
	if _, err := ProjectBBox([]float64{10, 50}, 32632); err == nil {
		t.Errorf("expecting rejection of a malformed bounding box")
	}
}
