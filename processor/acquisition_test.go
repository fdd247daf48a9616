package processor

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/SPohlabeln/S2-TCVIS/catalog"
	"github.com/SPohlabeln/S2-TCVIS/utils"
	pb "github.com/SPohlabeln/S2-TCVIS/worker/mosaicservice"
	"golang.org/x/net/context"
)

func gatePipeline(t *testing.T, fake *fakeRunner) *Pipeline {
	t.Helper()
	bands := []utils.BandDescriptor{
		{AssetKey: "B02_10m", Label: "Blue", ResClass: utils.RefRes},
		{AssetKey: "B11_20m", Label: "SWIR1", ResClass: utils.CoarseRes},
	}
	p := &Pipeline{
		Config:     &utils.Config{},
		Harmonizer: &Harmonizer{Cluster: fake, Bands: bands},
	}
	p.Config.Pipeline.OutDir = t.TempDir()
	return p
}

func TestCoverageGateRunsBeforeAnyFetch(t *testing.T) {
	fake := &fakeRunner{handler: func(g *pb.MosaicGranule, idx int) (*pb.Result, error) {
		return nil, fmt.Errorf("asset store offline")
	}}
	p := gatePipeline(t, fake)

	wcrs := &WorkingCRS{
		EPSG:       4326,
		AOIGeo:     []float64{10, 50, 11, 51},
		BoundsProj: []float64{10, 50, 11, 51},
	}

	// footprint covers a fifth of the AOI, below the 0.4 threshold
	scene := &catalog.Scene{
		ID:       "S2A_LOW",
		Geometry: json.RawMessage(`{"type":"Polygon","coordinates":[[[10,50],[11,50],[11,50.2],[10,50.2],[10,50]]]}`),
		Assets:   map[string]string{"B02_10m": "s3://bucket/low/B02.tif"},
	}

	outcome := p.downloadScene(context.Background(), 2021, scene, wcrs, 0.4)
	if outcome.Status != StatusLowCoverageSkip {
		t.Fatalf("expecting %s, actual %s (err %v)", StatusLowCoverageSkip, outcome.Status, outcome.Err)
	}
	if outcome.Ratio < 0.19 || outcome.Ratio > 0.21 {
		t.Errorf("coverage ratio %v, expecting about 0.2", outcome.Ratio)
	}
	if len(fake.calls) != 0 {
		t.Errorf("%d cluster calls for a scene below the coverage threshold, expecting none", len(fake.calls))
	}
}

func TestMaskYearIsolatesScenes(t *testing.T) {
	fake := &fakeRunner{handler: func(g *pb.MosaicGranule, idx int) (*pb.Result, error) {
		return nil, fmt.Errorf("worker unavailable")
	}}
	p := gatePipeline(t, fake)
	p.Config.Pipeline.SceneConcLimit = 2

	// edge scenes snap to smaller native windows, so raw grids of one
	// year may legitimately diverge before compositing
	grid := utils.Grid{EPSG: 32632, Geot: []float64{0, 10, 0, 40, 0, -10}, Width: 4, Height: 4}
	edge := utils.Grid{EPSG: 32632, Geot: []float64{0, 10, 0, 40, 0, -10}, Width: 3, Height: 4}
	writeStubScene(t, p.RawSceneDir(), 2021, "a_scene.tif", grid, []string{"Blue"})
	writeStubScene(t, p.RawSceneDir(), 2021, "b_scene.tif", edge, []string{"Blue"})

	outcomes, err := p.MaskYear(context.Background(), 2021)
	if err != nil {
		t.Fatalf("mask stage aborted: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expecting 2 scene outcomes, actual %d", len(outcomes))
	}
	for _, outcome := range outcomes {
		if outcome.Status != StatusFailed {
			t.Errorf("scene %s: status %s, expecting %s with the cluster down", outcome.ID, outcome.Status, StatusFailed)
		}
	}
}

func TestAdmittedSceneReachesTheCluster(t *testing.T) {
	fake := &fakeRunner{handler: func(g *pb.MosaicGranule, idx int) (*pb.Result, error) {
		return nil, fmt.Errorf("asset store offline")
	}}
	p := gatePipeline(t, fake)

	wcrs := &WorkingCRS{
		EPSG:       4326,
		AOIGeo:     []float64{10, 50, 11, 51},
		BoundsProj: []float64{10, 50, 11, 51},
	}

	scene := &catalog.Scene{
		ID:       "S2A_FULL",
		Geometry: json.RawMessage(`{"type":"Polygon","coordinates":[[[10,50],[11,50],[11,51],[10,51],[10,50]]]}`),
		Assets:   map[string]string{"B02_10m": "s3://bucket/full/B02.tif"},
	}

	outcome := p.downloadScene(context.Background(), 2021, scene, wcrs, 0.4)
	if outcome.Ratio < 0.99 {
		t.Errorf("coverage ratio %v, expecting about 1.0", outcome.Ratio)
	}
	// every band probe failed, so the scene degrades to a skip, but the
	// probes themselves prove the gate admitted it
	if outcome.Status != StatusNoBands {
		t.Fatalf("expecting %s, actual %s (err %v)", StatusNoBands, outcome.Status, outcome.Err)
	}
	if len(fake.calls) == 0 {
		t.Errorf("expecting probe calls for an admitted scene")
	}
}
