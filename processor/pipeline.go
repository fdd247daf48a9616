package processor

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/SPohlabeln/S2-TCVIS/catalog"
	"github.com/SPohlabeln/S2-TCVIS/utils"
	pb "github.com/SPohlabeln/S2-TCVIS/worker/mosaicservice"
	"golang.org/x/net/context"
)

// Pipeline wires the catalog, the worker cluster and the classifier
// into the staged processing of one output tree. Stages communicate
// through files only; each stage is independently resumable.
type Pipeline struct {
	Catalog    catalog.Backend
	Filter     *catalog.SceneFilter
	Harmonizer *Harmonizer
	Masker     *CloudMasker
	Compositor *Compositor
	Config     *utils.Config
	Overwrite  bool
	Verbose    bool
}

func (p *Pipeline) RawSceneDir() string {
	return filepath.Join(p.Config.Pipeline.OutDir, "scenes_raw")
}

func (p *Pipeline) MaskedSceneDir() string {
	return filepath.Join(p.Config.Pipeline.OutDir, "scenes_masked")
}

func (p *Pipeline) MedianDir() string {
	return filepath.Join(p.Config.Pipeline.OutDir, "medians")
}

func (p *Pipeline) TCDir() string {
	return filepath.Join(p.Config.Pipeline.OutDir, "tc")
}

// RunYear executes the requested stages for one year, in stage order.
func (p *Pipeline) RunYear(ctx context.Context, year int, stage string) ([]*SceneOutcome, error) {
	var outcomes []*SceneOutcome

	if stage == "download" || stage == "all" {
		res, err := p.DownloadYear(ctx, year)
		outcomes = append(outcomes, res...)
		if err != nil {
			return outcomes, err
		}
	}
	if stage == "mask" || stage == "all" {
		res, err := p.MaskYear(ctx, year)
		outcomes = append(outcomes, res...)
		if err != nil {
			return outcomes, err
		}
	}
	if stage == "median" || stage == "all" {
		if err := p.MedianYear(ctx, year); err != nil {
			return outcomes, err
		}
	}
	if stage == "tc" || stage == "all" {
		if err := p.TCYear(ctx, year); err != nil {
			return outcomes, err
		}
	}

	return outcomes, nil
}

// MedianYear reduces the masked scene stack of a year to its temporal
// median mosaic.
func (p *Pipeline) MedianYear(ctx context.Context, year int) error {
	medianFile := utils.MedianFileName(p.MedianDir(), year)
	if fileExists(medianFile) && !p.Overwrite {
		log.Printf("year %d: %s exists, skipping median", year, medianFile)
		return nil
	}

	stack, err := LoadYearStack(p.MaskedSceneDir(), year)
	if err != nil {
		return err
	}

	mosaic, err := p.Compositor.MedianMosaic(ctx, stack)
	if err != nil {
		return err
	}

	rasters := make([]utils.Raster, len(mosaic))
	for i, band := range mosaic {
		rasters[i] = band
	}

	if err := os.MkdirAll(p.MedianDir(), 0755); err != nil {
		return err
	}
	if err := utils.EncodeGeoTIFFFile(medianFile, rasters, stack.Grid, utils.SceneTIFFOptions); err != nil {
		return err
	}

	meta := &utils.SceneMeta{
		ID:     fmt.Sprintf("median_%d", year),
		Grid:   *stack.Grid,
		Bands:  stack.Bands,
		Masked: true,
	}
	return meta.Write(medianFile)
}

// TCYear projects a year's median mosaic onto the tasseled-cap axes
// and writes the product with its metadata sidecar.
func (p *Pipeline) TCYear(ctx context.Context, year int) error {
	tcFile := utils.TCFileName(p.TCDir(), year)
	if fileExists(tcFile) && !p.Overwrite {
		log.Printf("year %d: %s exists, skipping tasseled cap", year, tcFile)
		return nil
	}

	medianFile := utils.MedianFileName(p.MedianDir(), year)
	if !fileExists(medianFile) {
		return &InputMissingError{Path: medianFile, Detail: "median mosaic not built for this year"}
	}

	meta, err := utils.LoadSceneMeta(medianFile)
	if err != nil {
		return &InputMissingError{Path: utils.SidecarPath(medianFile), Detail: err.Error()}
	}

	rasters, err := p.loadSceneFile(ctx, medianFile, &meta.Grid, meta.Bands)
	if err != nil {
		return err
	}

	bands := make([]*utils.UInt16Raster, 0, len(rasters))
	for _, r := range rasters {
		band, ok := r.(*utils.UInt16Raster)
		if !ok {
			return fmt.Errorf("%s: expecting UInt16 median bands, got %T", medianFile, r)
		}
		bands = append(bands, band)
	}

	tc, err := TasseledCap(bands)
	if err != nil {
		return err
	}

	out := make([]utils.Raster, len(tc))
	for i, band := range tc {
		out[i] = band
	}

	if err := os.MkdirAll(p.TCDir(), 0755); err != nil {
		return err
	}
	if err := utils.EncodeGeoTIFFFile(tcFile, out, &meta.Grid, utils.TCTIFFOptions); err != nil {
		return err
	}

	doc := utils.NewProductDoc("tasseled_cap_median", year, tcLabels, &meta.Grid, []string{medianFile})
	if err := doc.Render(tcFile, "tc_product.tpl"); err != nil {
		log.Printf("year %d: product doc: %v", year, err)
	}

	return nil
}

// loadSceneFile reads the bands of a local scene raster back through
// the worker cluster, on the grid its sidecar declares.
func (p *Pipeline) loadSceneFile(ctx context.Context, file string, grid *utils.Grid, bands []string) ([]utils.Raster, error) {
	rasters := make([]utils.Raster, len(bands))
	for i, label := range bands {
		r, err := p.Harmonizer.Cluster.Process(ctx, warpGranule(file, grid, i+1), i)
		if err != nil {
			return nil, fmt.Errorf("%s band %s: %v", file, label, err)
		}
		raster, err := DecodeRaster(r.Raster, label)
		if err != nil {
			return nil, fmt.Errorf("%s band %s: %v", file, label, err)
		}
		rasters[i] = raster
	}
	return rasters, nil
}

func warpGranule(path string, grid *utils.Grid, band int) *pb.MosaicGranule {
	return &pb.MosaicGranule{
		Operation:  "warp",
		Path:       path,
		EPSG:       int32(grid.EPSG),
		Geot:       grid.Geot,
		Width:      int32(grid.Width),
		Height:     int32(grid.Height),
		Band:       int32(band),
		Resampling: "near",
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
