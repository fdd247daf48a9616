package processor

import (
	"errors"
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"unsafe"

	"github.com/SPohlabeln/S2-TCVIS/utils"
	pb "github.com/SPohlabeln/S2-TCVIS/worker/mosaicservice"
	"golang.org/x/net/context"
)

type fakeRunner struct {
	conc    int
	handler func(granule *pb.MosaicGranule, idx int) (*pb.Result, error)

	mu    sync.Mutex
	calls []*pb.MosaicGranule
}

func (f *fakeRunner) Process(ctx context.Context, granule *pb.MosaicGranule, idx int) (*pb.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, granule)
	f.mu.Unlock()
	return f.handler(granule, idx)
}

func (f *fakeRunner) ConcLevel() int {
	if f.conc > 0 {
		return f.conc
	}
	return 2
}

func float32Payload(vals []float32) []byte {
	header := *(*reflect.SliceHeader)(unsafe.Pointer(&vals))
	header.Len *= SizeofFloat32
	header.Cap *= SizeofFloat32
	return *(*[]byte)(unsafe.Pointer(&header))
}

func TestMedianMosaicAssembly(t *testing.T) {
	grid := &utils.Grid{EPSG: 32632, Geot: []float64{0, 10, 0, 40, 0, -10}, Width: 4, Height: 4}
	stack := &YearStack{
		Year:  2021,
		Files: []string{"a.tif", "b.tif", "c.tif"},
		Grid:  grid,
		Bands: []string{"Blue", "Green"},
	}

	fake := &fakeRunner{handler: func(g *pb.MosaicGranule, idx int) (*pb.Result, error) {
		if g.Operation != "median" {
			return nil, fmt.Errorf("unexpected operation %s", g.Operation)
		}
		if len(g.Paths) != 3 {
			return nil, fmt.Errorf("expecting 3 input paths, got %d", len(g.Paths))
		}
		vals := make([]float32, int(g.Width*g.Height))
		v := float32(1000*int(g.Band-1) + 10*int(g.OffX) + int(g.OffY) + 7)
		if g.Band == 2 && g.OffX == 2 && g.OffY == 0 {
			v = 20000
		}
		for i := range vals {
			vals[i] = v
		}
		if g.Band == 1 && g.OffX == 0 && g.OffY == 0 {
			vals[0] = nan32
		}
		raster := &pb.Raster{
			Data:       float32Payload(vals),
			NoData:     float64(nan32),
			RasterType: "Float32",
			Width:      g.Width,
			Height:     g.Height,
		}
		return &pb.Result{Raster: raster, Error: "OK"}, nil
	}}

	comp := &Compositor{Cluster: fake, TileSize: 2}
	mosaic, err := comp.MedianMosaic(context.Background(), stack)
	if err != nil {
		t.Fatalf("median mosaic failed: %v", err)
	}

	if len(mosaic) != 2 {
		t.Fatalf("expecting 2 bands, actual %d", len(mosaic))
	}
	if len(fake.calls) != 8 {
		t.Errorf("expecting 8 tile reductions (4 tiles x 2 bands), actual %d", len(fake.calls))
	}

	blue := mosaic[0]
	if blue.NameSpace != "Blue" || blue.Width != 4 || blue.Height != 4 {
		t.Errorf("unexpected band geometry: %s %dx%d", blue.NameSpace, blue.Width, blue.Height)
	}
	if blue.NoData != 0 {
		t.Errorf("quantized nodata is %v, expecting the 0 sentinel", blue.NoData)
	}

	// the empty observation quantizes to the 0 sentinel
	if blue.Data[0] != 0 {
		t.Errorf("pixel (0,0) is %d, expecting 0 for an empty observation", blue.Data[0])
	}
	if blue.Data[1] != 7 {
		t.Errorf("pixel (1,0) is %d, expecting 7", blue.Data[1])
	}
	// tile offsets land at the right canvas positions
	if blue.Data[2] != 27 {
		t.Errorf("pixel (2,0) is %d, expecting 27", blue.Data[2])
	}
	if blue.Data[2*4] != 9 {
		t.Errorf("pixel (0,2) is %d, expecting 9", blue.Data[2*4])
	}

	green := mosaic[1]
	if green.Data[3*4+3] != 1029 {
		t.Errorf("pixel (3,3) is %d, expecting 1029", green.Data[3*4+3])
	}
	// out-of-range reflectance clips to the scale ceiling
	if green.Data[2] != utils.ReflectanceScale {
		t.Errorf("pixel (2,0) is %d, expecting clip to %d", green.Data[2], utils.ReflectanceScale)
	}
}

func TestMedianMosaicTileFailureFailsYear(t *testing.T) {
	grid := &utils.Grid{EPSG: 32632, Geot: []float64{0, 10, 0, 40, 0, -10}, Width: 4, Height: 4}
	stack := &YearStack{Year: 2021, Files: []string{"a.tif"}, Grid: grid, Bands: []string{"Blue"}}

	fake := &fakeRunner{handler: func(g *pb.MosaicGranule, idx int) (*pb.Result, error) {
		if g.OffX == 2 && g.OffY == 2 {
			return nil, fmt.Errorf("worker crashed")
		}
		vals := make([]float32, int(g.Width*g.Height))
		raster := &pb.Raster{Data: float32Payload(vals), NoData: float64(nan32), RasterType: "Float32", Width: g.Width, Height: g.Height}
		return &pb.Result{Raster: raster, Error: "OK"}, nil
	}}

	comp := &Compositor{Cluster: fake, TileSize: 2}
	if _, err := comp.MedianMosaic(context.Background(), stack); err == nil {
		t.Errorf("expecting the year to fail when any tile reduction fails")
	}
	// all tiles were still attempted before the failure surfaced
	if len(fake.calls) != 4 {
		t.Errorf("expecting 4 tile reduction attempts, actual %d", len(fake.calls))
	}
}

func writeStubScene(t *testing.T, dir string, year int, name string, grid utils.Grid, bands []string) string {
	t.Helper()
	yearDir := filepath.Join(dir, fmt.Sprintf("%d", year))
	if err := os.MkdirAll(yearDir, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	path := filepath.Join(yearDir, name)
	if err := ioutil.WriteFile(path, []byte{}, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	meta := &utils.SceneMeta{ID: name, Grid: grid, Bands: bands, Masked: true}
	if err := meta.Write(path); err != nil {
		t.Fatalf("sidecar write failed: %v", err)
	}
	return path
}

func TestLoadYearStack(t *testing.T) {
	dir := t.TempDir()
	grid := utils.Grid{EPSG: 32632, Geot: []float64{0, 10, 0, 40, 0, -10}, Width: 4, Height: 4}
	writeStubScene(t, dir, 2021, "b_scene.tif", grid, []string{"Blue", "Green"})
	writeStubScene(t, dir, 2021, "a_scene.tif", grid, []string{"Blue", "Green"})

	stack, err := LoadYearStack(dir, 2021)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(stack.Files) != 2 {
		t.Fatalf("expecting 2 files, actual %d", len(stack.Files))
	}
	if filepath.Base(stack.Files[0]) != "a_scene.tif" {
		t.Errorf("files not in sorted order: %v", stack.Files)
	}
	if !stack.Grid.Equal(&grid) {
		t.Errorf("stack grid does not match the sidecars")
	}
	if len(stack.Bands) != 2 || stack.Bands[0] != "Blue" {
		t.Errorf("unexpected band list %v", stack.Bands)
	}
}

func TestLoadYearStackGridMismatch(t *testing.T) {
	dir := t.TempDir()
	grid := utils.Grid{EPSG: 32632, Geot: []float64{0, 10, 0, 40, 0, -10}, Width: 4, Height: 4}
	other := utils.Grid{EPSG: 32632, Geot: []float64{0, 20, 0, 40, 0, -20}, Width: 2, Height: 2}
	writeStubScene(t, dir, 2021, "a_scene.tif", grid, []string{"Blue", "Green"})
	writeStubScene(t, dir, 2021, "b_scene.tif", other, []string{"Blue", "Green"})

	_, err := LoadYearStack(dir, 2021)
	var mismatch *GridMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expecting GridMismatchError, actual %v", err)
	}
	if mismatch.Year != 2021 {
		t.Errorf("mismatch reports year %d", mismatch.Year)
	}
}

func TestLoadYearStackBandMismatch(t *testing.T) {
	dir := t.TempDir()
	grid := utils.Grid{EPSG: 32632, Geot: []float64{0, 10, 0, 40, 0, -10}, Width: 4, Height: 4}
	writeStubScene(t, dir, 2021, "a_scene.tif", grid, []string{"Blue"})
	writeStubScene(t, dir, 2021, "b_scene.tif", grid, []string{"Blue", "Green"})

	_, err := LoadYearStack(dir, 2021)
	var mismatch *BandMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expecting BandMismatchError, actual %v", err)
	}
	if mismatch.Year != 2021 {
		t.Errorf("mismatch reports year %d", mismatch.Year)
	}
	if filepath.Base(mismatch.File) != "b_scene.tif" {
		t.Errorf("mismatch reports file %s", mismatch.File)
	}
}

func TestLoadYearStackMissingYear(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadYearStack(dir, 1999)
	var missing *InputMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expecting InputMissingError, actual %v", err)
	}
}

func TestDecodeRasterRoundTrip(t *testing.T) {
	vals := []float32{1.5, float32(math.NaN()), 3}
	r, err := DecodeRaster(&pb.Raster{Data: float32Payload(vals), RasterType: "Float32", Width: 3, Height: 1, NoData: float64(nan32)}, "Blue")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	f32, ok := r.(*utils.Float32Raster)
	if !ok {
		t.Fatalf("expecting Float32Raster, actual %T", r)
	}
	if f32.Data[0] != 1.5 || f32.Data[2] != 3 {
		t.Errorf("payload corrupted: %v", f32.Data)
	}
	if !math.IsNaN(float64(f32.Data[1])) {
		t.Errorf("NaN observation lost in decode")
	}

	if _, err := DecodeRaster(&pb.Raster{RasterType: "Float64"}, ""); err == nil {
		t.Errorf("expecting error for an unsupported raster type")
	}
}
