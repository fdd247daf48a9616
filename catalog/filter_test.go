package catalog

import (
	"testing"
	"time"
)

func filterScene(cloudCover float64, acquired string) *Scene {
	t, _ := time.Parse(time.RFC3339, acquired)
	return &Scene{
		ID:         "S2A_32UNE_20210712",
		GridCode:   "MGRS-32UNE",
		CloudCover: cloudCover,
		EPSG:       32632,
		Acquired:   t,
	}
}

func TestSceneFilterAdmit(t *testing.T) {
	filter, err := ParseSceneFilter("cloud_cover < 20 && month >= 6 && month <= 8")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	ok, err := filter.Admit(filterScene(12.5, "2021-07-12T10:26:31Z"))
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if !ok {
		t.Errorf("expecting admission for a clear July scene")
	}

	ok, _ = filter.Admit(filterScene(55, "2021-07-12T10:26:31Z"))
	if ok {
		t.Errorf("expecting rejection for a cloudy scene")
	}

	ok, _ = filter.Admit(filterScene(12.5, "2021-11-12T10:26:31Z"))
	if ok {
		t.Errorf("expecting rejection outside the month window")
	}
}

func TestSceneFilterStringVariables(t *testing.T) {
	filter, err := ParseSceneFilter(`grid_code == 'MGRS-32UNE'`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ok, err := filter.Admit(filterScene(12.5, "2021-07-12T10:26:31Z"))
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if !ok {
		t.Errorf("expecting admission by grid code")
	}
}

func TestSceneFilterUnknownVariable(t *testing.T) {
	if _, err := ParseSceneFilter("sun_elevation > 30"); err == nil {
		t.Errorf("expecting rejection of an unsupported variable")
	}
}

func TestSceneFilterBlank(t *testing.T) {
	filter, err := ParseSceneFilter("   ")
	if err != nil {
		t.Fatalf("blank filter must not error: %v", err)
	}
	if filter != nil {
		t.Fatalf("blank filter must compile to nil")
	}

	ok, err := filter.Admit(filterScene(99, "2021-07-12T10:26:31Z"))
	if err != nil || !ok {
		t.Errorf("nil filter must admit everything, actual (%v, %v)", ok, err)
	}
}

func TestSceneFilterNonBoolean(t *testing.T) {
	filter, err := ParseSceneFilter("cloud_cover + 1")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, err := filter.Admit(filterScene(12.5, "2021-07-12T10:26:31Z")); err == nil {
		t.Errorf("expecting error for a non-boolean filter result")
	}
}
