package processor

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/SPohlabeln/S2-TCVIS/catalog"
	"github.com/SPohlabeln/S2-TCVIS/utils"
	pb "github.com/SPohlabeln/S2-TCVIS/worker/mosaicservice"
	"golang.org/x/net/context"
)

// SceneStack is one scene's bands warped onto a common grid, in
// canonical stacking order. Skip marks a scene with zero obtainable
// bands; that is an outcome, not an error.
type SceneStack struct {
	Scene       *catalog.Scene
	Grid        *utils.Grid
	Bands       []utils.Raster
	Skip        bool
	Promoted    bool
	FetchErrors []error
}

// Harmonizer warps the heterogeneous band assets of a scene onto one
// reference grid through the worker cluster. Reference-class bands set
// the grid; coarse-class bands are resampled bilinearly onto it.
type Harmonizer struct {
	Cluster GranuleRunner
	Bands   []utils.BandDescriptor
	Verbose bool
}

// SnapGridToBounds clips a native grid to the projected processing
// bounds, snapping the window outward to whole pixels. The native grid
// must already live in the working CRS.
func SnapGridToBounds(epsg int, geot []float64, width, height int, bounds []float64) (*utils.Grid, error) {
	if len(geot) != 6 {
		return nil, fmt.Errorf("geotransform must have 6 values, got %d", len(geot))
	}
	x0, px := geot[0], geot[1]
	y0, py := geot[3], -geot[5]
	if px <= 0 || py <= 0 {
		return nil, fmt.Errorf("unsupported geotransform: pixel size %v x %v", px, -py)
	}

	offX := int(math.Floor((bounds[0] - x0) / px))
	offY := int(math.Floor((y0 - bounds[3]) / py))
	if offX < 0 {
		offX = 0
	}
	if offY < 0 {
		offY = 0
	}

	endX := int(math.Ceil((bounds[2] - x0) / px))
	endY := int(math.Ceil((y0 - bounds[1]) / py))
	if endX > width {
		endX = width
	}
	if endY > height {
		endY = height
	}

	if endX-offX <= 0 || endY-offY <= 0 {
		return nil, fmt.Errorf("clip window is empty: bounds do not overlap the native grid")
	}

	return &utils.Grid{
		EPSG:   epsg,
		Geot:   []float64{x0 + float64(offX)*px, px, 0, y0 - float64(offY)*py, 0, -py},
		Width:  endX - offX,
		Height: endY - offY,
	}, nil
}

// GridForBounds builds a grid covering the projected bounds at a given
// pixel size, for scenes whose native CRS differs from the working one.
func GridForBounds(epsg int, px, py float64, bounds []float64) (*utils.Grid, error) {
	if px <= 0 || py <= 0 {
		return nil, fmt.Errorf("invalid pixel size %v x %v", px, py)
	}
	width := int(math.Ceil((bounds[2] - bounds[0]) / px))
	height := int(math.Ceil((bounds[3] - bounds[1]) / py))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("bounds produce an empty grid")
	}
	return &utils.Grid{
		EPSG:   epsg,
		Geot:   []float64{bounds[0], px, 0, bounds[3], 0, -py},
		Width:  width,
		Height: height,
	}, nil
}

// HarmonizeScene builds a scene's band stack on the working grid. The
// first obtainable reference-class band defines the grid; with no
// reference-class band obtainable, the first obtainable coarse-class
// band is promoted and keeps its native resolution.
func (h *Harmonizer) HarmonizeScene(ctx context.Context, scene *catalog.Scene, wcrs *WorkingCRS) (*SceneStack, error) {
	stack := &SceneStack{Scene: scene}

	paths := make([]string, len(h.Bands))
	for i, band := range h.Bands {
		href, found := scene.Assets[band.AssetKey]
		if !found || len(href) == 0 {
			stack.FetchErrors = append(stack.FetchErrors, &AssetFetchError{SceneID: scene.ID, Band: band.Label, Err: fmt.Errorf("no asset under key %s", band.AssetKey)})
			continue
		}
		paths[i] = catalog.GDALPath(href)
	}

	refIdx, refInfo := h.probeReference(ctx, stack, paths, utils.RefRes)
	if refIdx < 0 {
		refIdx, refInfo = h.probeReference(ctx, stack, paths, utils.CoarseRes)
		stack.Promoted = refIdx >= 0
	}
	if refIdx < 0 {
		stack.Skip = true
		return stack, nil
	}

	var grid *utils.Grid
	var err error
	if refInfo.HasCRS && int(refInfo.EPSG) == wcrs.EPSG {
		grid, err = SnapGridToBounds(wcrs.EPSG, refInfo.Geot, int(refInfo.Width), int(refInfo.Height), wcrs.BoundsProj)
	} else {
		grid, err = GridForBounds(wcrs.EPSG, refInfo.Geot[1], -refInfo.Geot[5], wcrs.BoundsProj)
	}
	if err != nil {
		return nil, fmt.Errorf("scene %s: %v", scene.ID, err)
	}
	stack.Grid = grid

	rasters := make([]utils.Raster, len(h.Bands))
	errs := make([]error, len(h.Bands))

	cLimiter := NewConcLimiter(h.Cluster.ConcLevel())
	var wgRpc sync.WaitGroup
	for i := range h.Bands {
		if len(paths[i]) == 0 {
			continue
		}

		resampling := "near"
		if h.Bands[i].ResClass == utils.CoarseRes && !stack.Promoted && i != refIdx {
			resampling = "bilinear"
		}

		wgRpc.Add(1)
		cLimiter.Increase()
		go func(idx int, path, resampling string) {
			defer wgRpc.Done()
			defer cLimiter.Decrease()

			granule := &pb.MosaicGranule{
				Operation:  "warp",
				Path:       path,
				EPSG:       int32(grid.EPSG),
				Geot:       grid.Geot,
				Width:      int32(grid.Width),
				Height:     int32(grid.Height),
				Band:       1,
				Resampling: resampling,
			}
			r, err := h.Cluster.Process(ctx, granule, idx)
			if err != nil {
				errs[idx] = &AssetFetchError{SceneID: scene.ID, Band: h.Bands[idx].Label, Err: err}
				return
			}
			raster, err := DecodeRaster(r.Raster, h.Bands[idx].Label)
			if err != nil {
				errs[idx] = &AssetFetchError{SceneID: scene.ID, Band: h.Bands[idx].Label, Err: err}
				return
			}
			rasters[idx] = raster
		}(i, paths[i], resampling)
	}
	wgRpc.Wait()

	for i := range h.Bands {
		if errs[i] != nil {
			log.Printf("scene %s: band %s unobtainable: %v", scene.ID, h.Bands[i].Label, errs[i])
			stack.FetchErrors = append(stack.FetchErrors, errs[i])
			continue
		}
		if rasters[i] != nil {
			stack.Bands = append(stack.Bands, rasters[i])
		}
	}

	if len(stack.Bands) == 0 {
		stack.Skip = true
	}
	return stack, nil
}

// probeReference finds the first obtainable band of a resolution class
// and returns its native grid.
func (h *Harmonizer) probeReference(ctx context.Context, stack *SceneStack, paths []string, class utils.BandResolution) (int, *pb.GridInfo) {
	for i, band := range h.Bands {
		if band.ResClass != class || len(paths[i]) == 0 {
			continue
		}
		r, err := h.Cluster.Process(ctx, &pb.MosaicGranule{Operation: "info", Path: paths[i]}, i)
		if err != nil {
			stack.FetchErrors = append(stack.FetchErrors, &AssetFetchError{SceneID: stack.Scene.ID, Band: band.Label, Err: err})
			paths[i] = ""
			continue
		}
		if h.Verbose {
			log.Printf("scene %s: %s grid %dx%d EPSG:%d", stack.Scene.ID, band.Label, r.Grid.Width, r.Grid.Height, r.Grid.EPSG)
		}
		return i, r.Grid
	}
	return -1, nil
}
