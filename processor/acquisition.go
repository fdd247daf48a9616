package processor

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/SPohlabeln/S2-TCVIS/catalog"
	"github.com/SPohlabeln/S2-TCVIS/utils"
	"golang.org/x/net/context"
)

// SceneStatus is the terminal state of one scene within a stage.
type SceneStatus string

const (
	StatusDownloaded      SceneStatus = "downloaded"
	StatusMasked          SceneStatus = "masked"
	StatusMaskingFailed   SceneStatus = "masking_failed"
	StatusExists          SceneStatus = "exists"
	StatusLowCoverageSkip SceneStatus = "low_coverage_skip"
	StatusNoBands         SceneStatus = "no_bands"
	StatusFailed          SceneStatus = "failed"
)

// SceneOutcome is one scene's result, reported up to the run summary.
type SceneOutcome struct {
	ID       string
	Year     int
	Stage    string
	Ratio    float64
	Status   SceneStatus
	Duration time.Duration
	Err      error
}

// SearchYear queries the catalog for one year's acquisition window and
// applies the configured admission filter.
func (p *Pipeline) SearchYear(ctx context.Context, year int) ([]*catalog.Scene, error) {
	start, end, err := p.Config.Pipeline.DateRange(year)
	if err != nil {
		return nil, err
	}

	query := &catalog.Query{
		Collection:    p.Config.ServiceConfig.Catalog.Collection,
		StartTime:     start,
		EndTime:       end,
		GridCode:      p.Config.Pipeline.GridCode,
		MaxCloudCover: p.Config.Pipeline.MaxCloudCover,
	}

	scenes, err := p.Catalog.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if p.Filter == nil {
		return scenes, nil
	}

	admitted := make([]*catalog.Scene, 0, len(scenes))
	for _, scene := range scenes {
		ok, err := p.Filter.Admit(scene)
		if err != nil {
			return nil, err
		}
		if !ok {
			if p.Verbose {
				log.Printf("scene %s rejected by scene filter", scene.ID)
			}
			continue
		}
		admitted = append(admitted, scene)
	}
	return admitted, nil
}

// DownloadYear fetches one year's admissible scenes onto the working
// grid and writes them as local rasters. The coverage gate runs before
// any band asset is touched.
func (p *Pipeline) DownloadYear(ctx context.Context, year int) ([]*SceneOutcome, error) {
	scenes, err := p.SearchYear(ctx, year)
	if err != nil {
		return nil, err
	}

	wcrs, err := ResolveCRS(scenes, p.Config.Pipeline.BBox)
	if err != nil {
		return nil, err
	}
	if p.Verbose {
		log.Printf("year %d: %d catalog scenes, working CRS EPSG:%d", year, len(scenes), wcrs.EPSG)
	}

	yearDir := filepath.Join(p.RawSceneDir(), fmt.Sprintf("%d", year))
	if err := os.MkdirAll(yearDir, 0755); err != nil {
		return nil, err
	}

	threshold := p.Config.Pipeline.CoverageThreshold
	outcomes := make([]*SceneOutcome, len(scenes))

	cLimiter := NewConcLimiter(p.Config.Pipeline.SceneConcLimit)
	for i, scene := range scenes {
		cLimiter.Increase()
		go func(idx int, scene *catalog.Scene) {
			defer cLimiter.Decrease()
			outcomes[idx] = p.downloadScene(ctx, year, scene, wcrs, threshold)
		}(i, scene)
	}
	cLimiter.Wait()

	return outcomes, nil
}

func (p *Pipeline) downloadScene(ctx context.Context, year int, scene *catalog.Scene, wcrs *WorkingCRS, threshold float64) *SceneOutcome {
	t0 := time.Now()
	outcome := &SceneOutcome{ID: scene.ID, Year: year, Stage: "download"}
	defer func() { outcome.Duration = time.Since(t0) }()

	rawFile := utils.SceneFileName(p.RawSceneDir(), year, scene.ID, scene.Acquired)
	if fileExists(rawFile) && !p.Overwrite {
		log.Printf("scene %s: %s exists, skipping", scene.ID, rawFile)
		outcome.Status = StatusExists
		return outcome
	}

	ratio, err := utils.IntersectionRatio(scene.FootprintWKT(), wcrs.AOIGeo, wcrs.EPSG)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}
	outcome.Ratio = ratio
	if ratio < threshold {
		log.Printf("scene %s covers %.2f of the AOI, below %.2f, skipping", scene.ID, ratio, threshold)
		outcome.Status = StatusLowCoverageSkip
		return outcome
	}

	stack, err := p.Harmonizer.HarmonizeScene(ctx, scene, wcrs)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}
	if stack.Skip {
		log.Printf("scene %s: no obtainable bands, skipping", scene.ID)
		outcome.Status = StatusNoBands
		return outcome
	}

	rasters := make([]utils.Raster, 0, len(stack.Bands))
	labels := make([]string, 0, len(stack.Bands))
	for _, band := range stack.Bands {
		switch t := band.(type) {
		case *utils.UInt16Raster:
			rasters = append(rasters, utils.ClipReflectance(t))
			labels = append(labels, t.NameSpace)
		case *utils.Float32Raster:
			rasters = append(rasters, utils.QuantizeReflectance(t))
			labels = append(labels, t.NameSpace)
		default:
			outcome.Status = StatusFailed
			outcome.Err = fmt.Errorf("scene %s: unsupported band payload %T", scene.ID, band)
			return outcome
		}
	}

	if err := utils.EncodeGeoTIFFFile(rawFile, rasters, stack.Grid, utils.SceneTIFFOptions); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}

	meta := &utils.SceneMeta{
		ID:       scene.ID,
		Datetime: scene.Acquired.Format(utils.ISOFormat),
		Grid:     *stack.Grid,
		Bands:    labels,
		Masked:   false,
	}
	if err := meta.Write(rawFile); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}

	outcome.Status = StatusDownloaded
	return outcome
}

// MaskYear runs the cloud gate over one year's raw scenes. Scenes are
// masked independently off their own sidecars; grid uniformity is only
// enforced later at compositing. A failed classification degrades the
// scene to an unmasked copy; only I/O failures drop it.
func (p *Pipeline) MaskYear(ctx context.Context, year int) ([]*SceneOutcome, error) {
	rawDir := filepath.Join(p.RawSceneDir(), fmt.Sprintf("%d", year))
	files, err := filepath.Glob(filepath.Join(rawDir, "*.tif"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &InputMissingError{Path: rawDir, Detail: "no scene rasters for this year"}
	}
	sort.Strings(files)

	yearDir := filepath.Join(p.MaskedSceneDir(), fmt.Sprintf("%d", year))
	if err := os.MkdirAll(yearDir, 0755); err != nil {
		return nil, err
	}

	outcomes := make([]*SceneOutcome, len(files))

	cLimiter := NewConcLimiter(p.Config.Pipeline.SceneConcLimit)
	for i, file := range files {
		cLimiter.Increase()
		go func(idx int, file string) {
			defer cLimiter.Decrease()
			outcomes[idx] = p.maskScene(ctx, year, file, yearDir)
		}(i, file)
	}
	cLimiter.Wait()

	return outcomes, nil
}

func (p *Pipeline) maskScene(ctx context.Context, year int, file, yearDir string) *SceneOutcome {
	t0 := time.Now()
	outcome := &SceneOutcome{Year: year, Stage: "mask"}
	defer func() { outcome.Duration = time.Since(t0) }()

	meta, err := utils.LoadSceneMeta(file)
	if err != nil {
		outcome.ID = filepath.Base(file)
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}
	outcome.ID = meta.ID

	maskedFile := filepath.Join(yearDir, filepath.Base(file))
	if fileExists(maskedFile) && !p.Overwrite {
		log.Printf("scene %s: %s exists, skipping", meta.ID, maskedFile)
		outcome.Status = StatusExists
		return outcome
	}

	rasters, err := p.loadSceneFile(ctx, file, &meta.Grid, meta.Bands)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}

	sceneStack := &SceneStack{
		Scene: &catalog.Scene{ID: meta.ID},
		Grid:  &meta.Grid,
		Bands: rasters,
	}

	maskOutcome, err := p.Masker.MaskStack(ctx, sceneStack)
	if maskOutcome == MaskingFailed {
		log.Printf("scene %s: classification failed, keeping unmasked pixels: %v", meta.ID, err)
		outcome.Status = StatusMaskingFailed
	} else {
		outcome.Status = StatusMasked
	}

	if err := utils.EncodeGeoTIFFFile(maskedFile, rasters, &meta.Grid, utils.SceneTIFFOptions); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}

	masked := &utils.SceneMeta{
		ID:       meta.ID,
		Datetime: meta.Datetime,
		Grid:     meta.Grid,
		Bands:    meta.Bands,
		Masked:   maskOutcome == Masked,
	}
	if err := masked.Write(maskedFile); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}

	return outcome
}
