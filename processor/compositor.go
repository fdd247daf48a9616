package processor

import (
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/SPohlabeln/S2-TCVIS/utils"
	pb "github.com/SPohlabeln/S2-TCVIS/worker/mosaicservice"
	"github.com/nci/go.procmeminfo"
	"golang.org/x/net/context"
)

const ReservedMemorySize = 1.5 * 1024 * 1024 * 1024
const SizeofFloat64 = 8

// Compositor reduces one year's masked scene stack to a per-band
// temporal median mosaic. The year stack is tiled spatially and each
// (band, tile) reduction runs on the worker cluster; the full time
// axis of a tile is materialized inside a single worker.
type Compositor struct {
	Cluster  GranuleRunner
	TileSize int
	Verbose  bool
}

// YearStack is the on-disk input of one compositing run.
type YearStack struct {
	Year  int
	Files []string
	Grid  *utils.Grid
	Bands []string
}

// LoadYearStack collects the scene rasters of a year and verifies they
// share one grid and one band list. Discovery order is the sorted file
// listing.
func LoadYearStack(sceneDir string, year int) (*YearStack, error) {
	yearDir := filepath.Join(sceneDir, fmt.Sprintf("%d", year))
	files, err := filepath.Glob(filepath.Join(yearDir, "*.tif"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &InputMissingError{Path: yearDir, Detail: "no scene rasters for this year"}
	}
	sort.Strings(files)

	stack := &YearStack{Year: year, Files: files}
	var first string
	for _, file := range files {
		meta, err := utils.LoadSceneMeta(file)
		if err != nil {
			return nil, &InputMissingError{Path: utils.SidecarPath(file), Detail: err.Error()}
		}
		if stack.Grid == nil {
			grid := meta.Grid
			stack.Grid = &grid
			stack.Bands = meta.Bands
			first = file
			continue
		}
		if !stack.Grid.Equal(&meta.Grid) {
			return nil, &GridMismatchError{Year: year, File: file, Other: first}
		}
		if !sameBands(meta.Bands, stack.Bands) {
			return nil, &BandMismatchError{Year: year, File: file, Other: first}
		}
	}

	return stack, nil
}

func sameBands(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type medianTileResult struct {
	band   int
	offX   int
	offY   int
	raster *utils.Float32Raster
}

// MedianMosaic computes the per-band temporal median of a year stack.
// All tile reductions complete before assembly starts and assembly
// completes before the caller may encode; the returned bands are fully
// materialized.
func (c *Compositor) MedianMosaic(ctx context.Context, stack *YearStack) ([]*utils.UInt16Raster, error) {
	grid := stack.Grid
	nBands := len(stack.Bands)
	if nBands == 0 {
		return nil, &InsufficientInputError{Op: "MedianMosaic", Detail: fmt.Sprintf("year %d sidecars name no bands", stack.Year)}
	}

	tileSize := c.TileSize
	if tileSize <= 0 {
		tileSize = utils.DefaultTileSize
	}

	var tiles []*pb.MosaicGranule
	for offY := 0; offY < grid.Height; offY += tileSize {
		th := tileSize
		if offY+th > grid.Height {
			th = grid.Height - offY
		}
		for offX := 0; offX < grid.Width; offX += tileSize {
			tw := tileSize
			if offX+tw > grid.Width {
				tw = grid.Width - offX
			}
			for band := 0; band < nBands; band++ {
				tiles = append(tiles, &pb.MosaicGranule{
					Operation: "median",
					Paths:     stack.Files,
					Band:      int32(band + 1),
					OffX:      int32(offX),
					OffY:      int32(offY),
					Width:     int32(tw),
					Height:    int32(th),
				})
			}
		}
	}

	if err := c.admitMemory(stack, tileSize, nBands); err != nil {
		return nil, err
	}

	results := make([]*medianTileResult, len(tiles))
	errs := make([]error, len(tiles))

	cLimiter := NewConcLimiter(c.Cluster.ConcLevel())
	var wg sync.WaitGroup
	for i, tile := range tiles {
		wg.Add(1)
		cLimiter.Increase()
		go func(idx int, granule *pb.MosaicGranule) {
			defer wg.Done()
			defer cLimiter.Decrease()

			select {
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			default:
			}

			r, err := c.Cluster.Process(ctx, granule, idx)
			if err != nil {
				errs[idx] = fmt.Errorf("median tile %d,%d band %d: %v", granule.OffX, granule.OffY, granule.Band, err)
				return
			}
			raster, err := DecodeRaster(r.Raster, "")
			if err != nil {
				errs[idx] = err
				return
			}
			tile32, ok := raster.(*utils.Float32Raster)
			if !ok {
				errs[idx] = fmt.Errorf("median tile %d,%d band %d: expecting Float32 payload, got %T", granule.OffX, granule.OffY, granule.Band, raster)
				return
			}
			results[idx] = &medianTileResult{
				band:   int(granule.Band) - 1,
				offX:   int(granule.OffX),
				offY:   int(granule.OffY),
				raster: tile32,
			}
		}(i, tile)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	// Assembly starts only after every reduction has landed.
	canvases := make([]*utils.Float32Raster, nBands)
	for band := 0; band < nBands; band++ {
		canvas := &utils.Float32Raster{
			Data:      make([]float32, grid.Width*grid.Height),
			Height:    grid.Height,
			Width:     grid.Width,
			NoData:    float64(nan32),
			NameSpace: stack.Bands[band],
		}
		for i := range canvas.Data {
			canvas.Data[i] = nan32
		}
		canvases[band] = canvas
	}

	for _, res := range results {
		canvas := canvases[res.band]
		for row := 0; row < res.raster.Height; row++ {
			src := res.raster.Data[row*res.raster.Width : (row+1)*res.raster.Width]
			dstOff := (res.offY+row)*grid.Width + res.offX
			copy(canvas.Data[dstOff:dstOff+res.raster.Width], src)
		}
	}

	if c.Verbose {
		log.Printf("year %d: assembled %d median tiles over %d bands", stack.Year, len(results)/nBands, nBands)
	}

	// Quantization happens strictly after the reduction and assembly.
	mosaic := make([]*utils.UInt16Raster, nBands)
	for band, canvas := range canvases {
		mosaic[band] = utils.QuantizeReflectance(canvas)
	}

	return mosaic, nil
}

// admitMemory rejects a compositing run that cannot fit the assembled
// canvases plus the in-flight tile stacks into available memory.
func (c *Compositor) admitMemory(stack *YearStack, tileSize, nBands int) error {
	meminfo := procmeminfo.MemInfo{}
	err := meminfo.Update()
	if err != nil {
		// If we have error obtaining meminfo, we assume that we have
		// enough memory. This can happen if the OS doesn't support
		// /proc/meminfo
		log.Printf("meminfo error: %v", err)
		return nil
	}

	canvasSize := nBands * stack.Grid.Width * stack.Grid.Height * SizeofFloat32
	inflightSize := c.Cluster.ConcLevel() * len(stack.Files) * tileSize * tileSize * SizeofFloat64
	requestedSize := canvasSize + inflightSize

	freeMem := int(meminfo.Available())
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	availableMem := freeMem + int(mem.HeapIdle)

	if availableMem-requestedSize <= ReservedMemorySize {
		log.Printf("Out of memory, freeMem:%v, requested:%v", freeMem, requestedSize)
		return fmt.Errorf("Server resources exhausted")
	}
	return nil
}
