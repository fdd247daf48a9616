package processor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/SPohlabeln/S2-TCVIS/catalog"
	"github.com/SPohlabeln/S2-TCVIS/classifier"
	"github.com/SPohlabeln/S2-TCVIS/utils"
	"golang.org/x/net/context"
)

func makeMaskStack() *SceneStack {
	labels := []string{"Blue", "Green", "Red", "NIR", "SWIR1", "SWIR2"}
	bands := make([]utils.Raster, len(labels))
	for i, label := range labels {
		bands[i] = &utils.UInt16Raster{
			Data:      []uint16{100, 200, 300, 400},
			Height:    2,
			Width:     2,
			NoData:    0,
			NameSpace: label,
		}
	}
	return &SceneStack{
		Scene: &catalog.Scene{ID: "S2A_TEST"},
		Grid:  &utils.Grid{EPSG: 32632, Geot: []float64{0, 10, 0, 0, 0, -10}, Width: 2, Height: 2},
		Bands: bands,
	}
}

func TestNormalizeClassMapThreeChannels(t *testing.T) {
	// (3,y,x); the class plane sits at channel 1
	data := []uint8{
		9, 9, 9, 9,
		0, 1, 0, 2,
		7, 7, 7, 7,
	}

	classes, err := NormalizeClassMap(data, 3, 2, 2)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	expected := []uint8{0, 1, 0, 2}
	for i := range expected {
		if classes[i] != expected[i] {
			t.Errorf("pixel %d: expected class %d, actual %d", i, expected[i], classes[i])
		}
	}
}

func TestNormalizeClassMapFlatAndSingleChannel(t *testing.T) {
	flat := []uint8{0, 1, 2, 0}

	classes, err := NormalizeClassMap(flat, 0, 2, 2)
	if err != nil {
		t.Fatalf("flat normalize failed: %v", err)
	}
	if classes[1] != 1 {
		t.Errorf("expected flat map passed through, actual %v", classes)
	}

	classes, err = NormalizeClassMap(flat, 1, 2, 2)
	if err != nil {
		t.Fatalf("single channel normalize failed: %v", err)
	}
	if classes[2] != 2 {
		t.Errorf("expected single channel map passed through, actual %v", classes)
	}
}

func TestNormalizeClassMapBadShape(t *testing.T) {
	if _, err := NormalizeClassMap([]uint8{0, 1, 2}, 1, 2, 2); err == nil {
		t.Errorf("expected error for 3 samples over a 2x2 grid")
	}
	if _, err := NormalizeClassMap(make([]uint8, 8), 2, 2, 2); err == nil {
		t.Errorf("expected error for unsupported channel count 2")
	}
}

func TestMaskStackBlanksOccludedPixels(t *testing.T) {
	stack := makeMaskStack()
	masker := &CloudMasker{
		Classify: func(ctx context.Context, planes [][]float32, height, width int) (*classifier.ClassMap, error) {
			if len(planes) != 3 {
				t.Errorf("expected 3 classifier input planes, actual %d", len(planes))
			}
			return &classifier.ClassMap{
				Data:     []uint8{0, 4, 0, 8},
				Height:   int32(height),
				Width:    int32(width),
				Channels: 1,
			}, nil
		},
	}

	outcome, err := masker.MaskStack(context.Background(), stack)
	if err != nil {
		t.Fatalf("mask failed: %v", err)
	}
	if outcome != Masked {
		t.Fatalf("expected Masked outcome, actual %v", outcome)
	}

	for _, band := range stack.Bands {
		data := band.(*utils.UInt16Raster).Data
		if data[0] == 0 || data[2] == 0 {
			t.Errorf("clear pixels were blanked: %v", data)
		}
		if data[1] != 0 || data[3] != 0 {
			t.Errorf("occluded pixels survived: %v", data)
		}
	}
}

func TestMaskStackChannelOneSelected(t *testing.T) {
	stack := makeMaskStack()
	masker := &CloudMasker{
		Classify: func(ctx context.Context, planes [][]float32, height, width int) (*classifier.ClassMap, error) {
			return &classifier.ClassMap{
				Data: []uint8{
					1, 1, 1, 1,
					0, 0, 0, 1,
					1, 1, 1, 1,
				},
				Height:   int32(height),
				Width:    int32(width),
				Channels: 3,
			}, nil
		},
	}

	outcome, err := masker.MaskStack(context.Background(), stack)
	if err != nil || outcome != Masked {
		t.Fatalf("mask failed: outcome %v, err %v", outcome, err)
	}

	data := stack.Bands[0].(*utils.UInt16Raster).Data
	if data[0] == 0 || data[1] == 0 || data[2] == 0 {
		t.Errorf("channel 1 clear pixels were blanked: %v", data)
	}
	if data[3] != 0 {
		t.Errorf("channel 1 occluded pixel survived: %v", data)
	}
}

func TestMaskStackDegradesOnClassifierFailure(t *testing.T) {
	stack := makeMaskStack()
	masker := &CloudMasker{
		Classify: func(ctx context.Context, planes [][]float32, height, width int) (*classifier.ClassMap, error) {
			return nil, fmt.Errorf("model service offline")
		},
	}

	outcome, err := masker.MaskStack(context.Background(), stack)
	if outcome != MaskingFailed {
		t.Fatalf("expected MaskingFailed outcome, actual %v", outcome)
	}
	if err == nil {
		t.Errorf("expected the classifier error to be reported")
	}

	for _, band := range stack.Bands {
		data := band.(*utils.UInt16Raster).Data
		for i, v := range []uint16{100, 200, 300, 400} {
			if data[i] != v {
				t.Errorf("pixels changed on a failed classification: %v", data)
				break
			}
		}
	}
}

func TestMaskStackShapeMismatch(t *testing.T) {
	stack := makeMaskStack()
	masker := &CloudMasker{
		Classify: func(ctx context.Context, planes [][]float32, height, width int) (*classifier.ClassMap, error) {
			return &classifier.ClassMap{
				Data:     []uint8{0, 0},
				Height:   1,
				Width:    2,
				Channels: 1,
			}, nil
		},
	}

	outcome, err := masker.MaskStack(context.Background(), stack)
	if outcome != MaskingFailed {
		t.Fatalf("expected MaskingFailed outcome, actual %v", outcome)
	}

	var shapeErr *ShapeMismatchError
	if !errors.As(err, &shapeErr) {
		t.Errorf("expected ShapeMismatchError, actual %T: %v", err, err)
	}
}
