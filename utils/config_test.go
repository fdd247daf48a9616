package utils

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := ioutil.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func TestLoadConfigFileDefaults(t *testing.T) {
	path := writeConfig(t, `{
  "service_config": {
    "worker_nodes": ["127.0.0.1:6000"],
    "catalog": {"stac_url": "https://example.com/stac", "collection": "sentinel-2-l2a"}
  },
  "pipeline": {
    "grid_code": "MGRS-32UNE",
    "year_start": 2019,
    "year_end": 2021,
    "out_dir": "/data/out"
  }
}`)

	config := &Config{}
	if err := config.LoadConfigFile(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if config.Pipeline.CoverageThreshold != DefaultCoverageThreshold {
		t.Errorf("coverage threshold default not applied: %v", config.Pipeline.CoverageThreshold)
	}
	if config.Cluster.TileSize != DefaultTileSize {
		t.Errorf("tile size default not applied: %d", config.Cluster.TileSize)
	}
	if config.ServiceConfig.MaxGrpcRecvMsgSize != DefaultRecvMsgSize {
		t.Errorf("recv msg size default not applied: %d", config.ServiceConfig.MaxGrpcRecvMsgSize)
	}
	if config.ServiceConfig.Catalog.Backend != "stac" {
		t.Errorf("catalog backend default not applied: %s", config.ServiceConfig.Catalog.Backend)
	}
	if config.Pipeline.MonthStart != "01-01" || config.Pipeline.MonthEnd != "12-31" {
		t.Errorf("acquisition window defaults not applied: %s..%s", config.Pipeline.MonthStart, config.Pipeline.MonthEnd)
	}

	if len(config.Pipeline.Bands) != len(DefaultBands) {
		t.Fatalf("band set default not applied: %d bands", len(config.Pipeline.Bands))
	}
	for i, band := range config.Pipeline.Bands {
		wantClass := RefRes
		if band.Resolution == "coarse" {
			wantClass = CoarseRes
		}
		if band.ResClass != wantClass {
			t.Errorf("band %d (%s) resolved to class %v", i, band.Label, band.ResClass)
		}
	}

	years := config.Pipeline.Years()
	if len(years) != 3 || years[0] != 2019 || years[2] != 2021 {
		t.Errorf("unexpected year expansion %v", years)
	}
}

func TestLoadConfigFileBadResolution(t *testing.T) {
	path := writeConfig(t, `{
  "pipeline": {
    "year_start": 2021,
    "year_end": 2021,
    "bands": [{"asset_key": "B02_10m", "label": "Blue", "resolution": "super"}]
  }
}`)

	config := &Config{}
	if err := config.LoadConfigFile(path); err == nil {
		t.Errorf("expecting rejection of an unknown resolution class")
	}
}

func TestLoadConfigFileBadYearRange(t *testing.T) {
	path := writeConfig(t, `{"pipeline": {"year_start": 2021, "year_end": 2019}}`)
	config := &Config{}
	if err := config.LoadConfigFile(path); err == nil {
		t.Errorf("expecting rejection of an inverted year range")
	}
}

func TestDateRange(t *testing.T) {
	p := &PipelineConfig{MonthStart: "07-01", MonthEnd: "08-31"}
	start, end, err := p.DateRange(2021)
	if err != nil {
		t.Fatalf("date range failed: %v", err)
	}
	if start.Format("2006-01-02T15:04:05Z") != "2021-07-01T00:00:00Z" {
		t.Errorf("unexpected window start %v", start)
	}
	if end.Format("2006-01-02T15:04:05Z") != "2021-08-31T23:59:59Z" {
		t.Errorf("unexpected window end %v", end)
	}

	p = &PipelineConfig{MonthStart: "13-40", MonthEnd: "08-31"}
	if _, _, err := p.DateRange(2021); err == nil {
		t.Errorf("expecting rejection of an invalid month_start")
	}
}
