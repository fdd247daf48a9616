package utils

import (
	"math"
	"testing"
)

func TestQuantizeReflectance(t *testing.T) {
	in := &Float32Raster{
		Data:      []float32{100.7, 0, -5, float32(math.NaN()), 10000, 25000},
		Height:    1,
		Width:     6,
		NoData:    float64(math.NaN()),
		NameSpace: "Blue",
	}

	out := QuantizeReflectance(in)
	if out.NoData != 0 {
		t.Errorf("quantized nodata is %v, expecting the 0 sentinel", out.NoData)
	}
	if out.NameSpace != "Blue" {
		t.Errorf("band label lost: %s", out.NameSpace)
	}

	expected := []uint16{100, 0, 0, 0, 10000, 10000}
	for i, want := range expected {
		if out.Data[i] != want {
			t.Errorf("sample %d quantized to %d, expecting %d", i, out.Data[i], want)
		}
	}
}

func TestQuantizeReflectanceExplicitNoData(t *testing.T) {
	in := &Float32Raster{
		Data:   []float32{-9999, 500},
		Height: 1,
		Width:  2,
		NoData: -9999,
	}
	out := QuantizeReflectance(in)
	if out.Data[0] != 0 {
		t.Errorf("input nodata quantized to %d, expecting 0", out.Data[0])
	}
	if out.Data[1] != 500 {
		t.Errorf("valid sample quantized to %d, expecting 500", out.Data[1])
	}
}

func TestClipReflectance(t *testing.T) {
	in := &UInt16Raster{
		Data:   []uint16{65535, 42, 10000, 10001, 0},
		Height: 1,
		Width:  5,
		NoData: 65535,
	}

	out := ClipReflectance(in)
	if out.NoData != 0 {
		t.Errorf("clipped nodata is %v, expecting the 0 sentinel", out.NoData)
	}

	expected := []uint16{0, 42, 10000, 10000, 0}
	for i, want := range expected {
		if out.Data[i] != want {
			t.Errorf("sample %d clipped to %d, expecting %d", i, out.Data[i], want)
		}
	}
}

func TestIsNoData(t *testing.T) {
	if !IsNoData(math.NaN(), math.NaN()) {
		t.Errorf("NaN sample must always be nodata")
	}
	if !IsNoData(-9999, -9999) {
		t.Errorf("sample equal to the nodata value must be nodata")
	}
	if IsNoData(500, -9999) {
		t.Errorf("valid sample flagged as nodata")
	}
	if IsNoData(500, math.NaN()) {
		t.Errorf("valid sample flagged as nodata under NaN nodata")
	}
}
