package processor

import (
	"fmt"
	"math"

	"github.com/SPohlabeln/S2-TCVIS/classifier"
	"github.com/SPohlabeln/S2-TCVIS/utils"
	"golang.org/x/net/context"
)

// MaskOutcome reports how the cloud gate treated a scene. A classifier
// failure degrades the scene to unmasked; it never discards pixels.
type MaskOutcome int

const (
	Masked MaskOutcome = iota
	MaskingFailed
)

func (o MaskOutcome) String() string {
	if o == MaskingFailed {
		return "masking_failed"
	}
	return "masked"
}

// ClassifyFunc is the classification capability consumed by the cloud
// gate. Production wires the gRPC classifier; tests inject stubs.
type ClassifyFunc func(ctx context.Context, planes [][]float32, height, width int) (*classifier.ClassMap, error)

// CloudMasker removes occluded pixels from a scene stack using an
// external per-pixel surface classifier. Class 0 is clear; every other
// class is blanked to the nodata sentinel across all bands.
type CloudMasker struct {
	Classify ClassifyFunc
}

// classifier inputs, in the order the model was trained with
var maskInputLabels = []string{"Red", "Green", "NIR"}

// NormalizeClassMap flattens the classifier reply to one class plane.
// Accepted layouts: a flat (y,x) plane, a single-channel (1,y,x) cube,
// or a three-channel (3,y,x) cube where the class plane sits at
// channel 1.
func NormalizeClassMap(data []uint8, channels, height, width int) ([]uint8, error) {
	nPixels := height * width
	if nPixels <= 0 {
		return nil, fmt.Errorf("empty class map geometry %dx%d", width, height)
	}

	if channels <= 1 {
		if len(data) != nPixels {
			return nil, fmt.Errorf("flat class map has %d samples, expecting %d", len(data), nPixels)
		}
		return data, nil
	}

	if len(data) != channels*nPixels {
		return nil, fmt.Errorf("class map has %d samples, expecting %d channels x %d pixels", len(data), channels, nPixels)
	}

	if channels == 3 {
		return data[nPixels : 2*nPixels], nil
	}
	return nil, fmt.Errorf("unsupported class map channel count %d", channels)
}

// MaskStack classifies the scene and blanks occluded pixels in place.
func (m *CloudMasker) MaskStack(ctx context.Context, stack *SceneStack) (MaskOutcome, error) {
	nPixels := stack.Grid.Width * stack.Grid.Height

	byLabel := make(map[string]utils.Raster)
	for _, band := range stack.Bands {
		switch t := band.(type) {
		case *utils.UInt16Raster:
			byLabel[t.NameSpace] = t
		case *utils.Float32Raster:
			byLabel[t.NameSpace] = t
		case *utils.ByteRaster:
			byLabel[t.NameSpace] = t
		}
	}

	planes := make([][]float32, 0, len(maskInputLabels))
	for _, label := range maskInputLabels {
		band, found := byLabel[label]
		if !found {
			return MaskingFailed, fmt.Errorf("scene %s: band %s required for classification is missing", stack.Scene.ID, label)
		}
		plane, err := AsFloat32Plane(band)
		if err != nil {
			return MaskingFailed, err
		}
		if len(plane) != nPixels {
			return MaskingFailed, &ShapeMismatchError{SceneID: stack.Scene.ID, Want: nPixels, Got: len(plane), WantCh: 1, GotCh: 1}
		}
		planes = append(planes, plane)
	}

	classMap, err := m.Classify(ctx, planes, stack.Grid.Height, stack.Grid.Width)
	if err != nil {
		return MaskingFailed, err
	}

	classes, err := NormalizeClassMap(classMap.Data, int(classMap.Channels), int(classMap.Height), int(classMap.Width))
	if err != nil {
		return MaskingFailed, &ShapeMismatchError{
			SceneID: stack.Scene.ID,
			Want:    nPixels, Got: len(classMap.Data),
			WantCh: 1, GotCh: int(classMap.Channels),
		}
	}
	if int(classMap.Height)*int(classMap.Width) != nPixels {
		return MaskingFailed, &ShapeMismatchError{
			SceneID: stack.Scene.ID,
			Want:    nPixels, Got: int(classMap.Height) * int(classMap.Width),
			WantCh: 1, GotCh: int(classMap.Channels),
		}
	}

	for _, band := range stack.Bands {
		applyClassMask(band, classes)
	}

	return Masked, nil
}

func applyClassMask(band utils.Raster, classes []uint8) {
	switch t := band.(type) {
	case *utils.UInt16Raster:
		noData := uint16(t.NoData)
		if math.IsNaN(t.NoData) {
			noData = 0
			t.NoData = 0
		}
		for i, class := range classes {
			if class != 0 {
				t.Data[i] = noData
			}
		}
	case *utils.Float32Raster:
		noData := float32(t.NoData)
		if math.IsNaN(t.NoData) {
			noData = nan32
		}
		for i, class := range classes {
			if class != 0 {
				t.Data[i] = noData
			}
		}
	case *utils.ByteRaster:
		noData := uint8(t.NoData)
		for i, class := range classes {
			if class != 0 {
				t.Data[i] = noData
			}
		}
	}
}
